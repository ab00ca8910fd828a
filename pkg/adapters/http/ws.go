package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/aretw0/jarvis/pkg/bridge"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
)

// ConnectedText greets every new websocket session.
const ConnectedText = "Connected to Jarvis!"

// inbound is a client frame. Plain text frames are taken as the message.
type inbound struct {
	Message string `json:"message"`
}

func (s *Server) originPatterns() []string {
	if s.allowAnyOrigin() {
		return []string{"*"}
	}
	patterns := make([]string, 0, len(s.origins))
	for _, o := range s.origins {
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
			continue
		}
		patterns = append(patterns, o)
	}
	return patterns
}

// serveWS runs one client session. The session id is the thread id, so a
// reconnecting client resumes its conversation and any pending question.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "session_id")
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.originPatterns()})
	if err != nil {
		s.logger.WarnContext(r.Context(), "Websocket upgrade failed", "session_id", id, "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	sess := s.hub.Open(ctx, id, bridge.TransportFunc(func(ctx context.Context, ev domain.Event) error {
		return wsjson.Write(ctx, conn, ev)
	}))
	s.logger.InfoContext(ctx, "Session connected", "session_id", id)
	sess.Emit(ctx, domain.Event{Type: domain.EventSystem, Content: ConnectedText})

	// Runs outlive a disconnect so their checkpoint is always written. Their
	// events after the close are dropped by the stopped session.
	runCtx := graph.WithHooks(capabilities.WithUser(context.WithoutCancel(ctx), s.user), sess.Hooks())
	defer func() {
		s.hub.Close(sess)
		s.logger.InfoContext(ctx, "Session disconnected", "session_id", id)
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				s.logger.WarnContext(ctx, "Websocket read failed", "session_id", id, "err", err)
			}
			return
		}

		message := decodeInbound(data)
		if strings.TrimSpace(message) == "" {
			continue
		}
		sess.Emit(ctx, domain.Event{Type: domain.EventUser, Content: "Processing: " + message})

		// A second message while a run is in flight is rejected as busy by
		// the controller, with an error event on this session.
		go func() {
			if _, err := s.ctrl.Handle(runCtx, id, message, sess); err != nil {
				s.logger.DebugContext(runCtx, "Websocket request ended with error", "session_id", id, "err", err)
			}
		}()
	}
}

func decodeInbound(data []byte) string {
	var in inbound
	if err := json.Unmarshal(data, &in); err == nil {
		return in.Message
	}
	return string(data)
}
