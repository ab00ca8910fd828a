package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/aretw0/jarvis/internal/presentation/diagram"
	"github.com/aretw0/jarvis/pkg/bridge"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/capconfig"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/session"
	"github.com/go-chi/chi/v5"
)

// MessageRequest is the body of POST /api/threads/{thread_id}/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// ResumeRequest is the body of POST /api/threads/{thread_id}/resume.
type ResumeRequest struct {
	Value string `json:"value"`
}

// SpeechRequest is the body of POST /api/tts.
type SpeechRequest struct {
	Text string `json:"text"`
}

// ToolUpdate is the body of POST /api/tool-config.
type ToolUpdate struct {
	ToolName string `json:"tool_name"`
	Enabled  bool   `json:"enabled"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "thread_id")
	ctx, sink := s.runContext(r.Context(), id)
	reply, err := s.ctrl.Handle(ctx, id, body.Message, sink)
	s.writeReply(w, r, reply, err)
}

func (s *Server) postResume(w http.ResponseWriter, r *http.Request) {
	var body ResumeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	id := chi.URLParam(r, "thread_id")
	ctx, sink := s.runContext(r.Context(), id)
	reply, err := s.ctrl.Resume(ctx, id, body.Value, sink)
	s.writeReply(w, r, reply, err)
}

// runContext mirrors a synchronous request onto the thread's live websocket
// session, when one is connected.
func (s *Server) runContext(ctx context.Context, threadID string) (context.Context, ports.EventSink) {
	ctx = capabilities.WithUser(ctx, s.user)
	sess, ok := s.hub.Get(threadID)
	if !ok {
		return ctx, ports.DiscardSink
	}
	return graph.WithHooks(ctx, bridge.ProgressHooks(sess)), sess
}

func (s *Server) writeReply(w http.ResponseWriter, r *http.Request, reply session.Reply, err error) {
	var inputErr *session.InputError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case errors.As(err, &inputErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrThreadBusy):
		writeError(w, http.StatusConflict, session.BusyText)
	case errors.Is(err, domain.ErrNoPendingSuspension):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	cp, err := s.ctrl.Inspect(r.Context(), chi.URLParam(r, "thread_id"))
	if errors.Is(err, domain.ErrCheckpointNotFound) {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cp)
}

// getGraph returns the mermaid diagram of the main agent, marked with the
// position of ?thread_id= when given.
func (s *Server) getGraph(w http.ResponseWriter, r *http.Request) {
	if s.graph == nil {
		writeError(w, http.StatusNotFound, "graph not available")
		return
	}
	var overlay *diagram.Overlay
	if id := r.URL.Query().Get("thread_id"); id != "" {
		if cp, err := s.ctrl.Inspect(r.Context(), id); err == nil {
			overlay = diagram.OverlayFor(s.graph, cp)
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(diagram.GenerateMermaid(s.graph, overlay)))
}

func (s *Server) getToolConfig(w http.ResponseWriter, r *http.Request) {
	if s.tools == nil {
		writeError(w, http.StatusNotFound, "tool configuration not available")
		return
	}
	tools := s.tools.Snapshot()
	enabled, disabled := []string{}, []string{}
	for name, on := range tools {
		if on {
			enabled = append(enabled, name)
		} else {
			disabled = append(disabled, name)
		}
	}
	sort.Strings(enabled)
	sort.Strings(disabled)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"tools":    tools,
		"enabled":  enabled,
		"disabled": disabled,
	})
}

func (s *Server) postToolConfig(w http.ResponseWriter, r *http.Request) {
	if s.tools == nil {
		writeError(w, http.StatusNotFound, "tool configuration not available")
		return
	}
	var body ToolUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, ok := capconfig.Defaults[body.ToolName]; !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success":         false,
			"error":           "Unknown tool: " + body.ToolName,
			"available_tools": knownTools(),
		})
		return
	}
	if err := s.tools.SetBulk(map[string]bool{body.ToolName: body.Enabled}); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	state := "disabled"
	if body.Enabled {
		state = "enabled"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"tool_name": body.ToolName,
		"enabled":   body.Enabled,
		"message":   "Tool '" + body.ToolName + "' " + state + ".",
	})
}

// postToolConfigBulk applies the known keys and reports the unknown ones.
func (s *Server) postToolConfigBulk(w http.ResponseWriter, r *http.Request) {
	if s.tools == nil {
		writeError(w, http.StatusNotFound, "tool configuration not available")
		return
	}
	var body map[string]bool
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	known := make(map[string]bool, len(body))
	updated, unknown := []string{}, []string{}
	for name, on := range body {
		if _, ok := capconfig.Defaults[name]; !ok {
			unknown = append(unknown, "Unknown tool: "+name)
			continue
		}
		known[name] = on
		updated = append(updated, name)
	}
	sort.Strings(updated)
	sort.Strings(unknown)

	if len(known) > 0 {
		if err := s.tools.SetBulk(known); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	resp := map[string]any{
		"success":        len(unknown) == 0,
		"updated":        updated,
		"current_config": s.tools.Snapshot(),
	}
	if len(unknown) > 0 {
		resp["errors"] = unknown
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) getCoreMemory(w http.ResponseWriter, r *http.Request) {
	if s.profiles == nil {
		writeError(w, http.StatusNotFound, "core memory not available")
		return
	}
	user := r.URL.Query().Get("user_id")
	if user == "" {
		user = s.user
	}
	p, err := s.profiles.Get(r.Context(), user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if p == nil {
		p = domain.Profile{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"user_id":     user,
		"core_memory": p,
	})
}

func (s *Server) postTTS(w http.ResponseWriter, r *http.Request) {
	if s.speaker == nil {
		writeError(w, http.StatusNotFound, "text to speech not available")
		return
	}
	var body SpeechRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		writeError(w, http.StatusBadRequest, "No text provided")
		return
	}
	audio, contentType, err := s.speaker.Speak(r.Context(), body.Text)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Speech synthesis failed", "err", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	defer audio.Close()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=speech.mp3")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, audio); err != nil {
		s.logger.WarnContext(r.Context(), "Speech stream interrupted", "err", err)
	}
}

func knownTools() []string {
	out := make([]string, 0, len(capconfig.Defaults))
	for name := range capconfig.Defaults {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
