package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/jarvis/internal/metrics"
	"github.com/aretw0/jarvis/pkg/adapters/memory"
	"github.com/aretw0/jarvis/pkg/adapters/scripted"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/capconfig"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/session"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	server   *Server
	handler  http.Handler
	profiles *memory.Profiles
	tools    *capconfig.Store
}

func newFixture(t *testing.T, oracle ports.Oracle, opts ...Option) fixture {
	t.Helper()
	tools, err := capconfig.Open("")
	require.NoError(t, err)
	profiles := memory.NewProfiles()

	g, _, err := capabilities.Assemble(oracle, capabilities.Services{
		Profiles: profiles,
		Journal:  memory.NewJournal(),
	}, capabilities.Config{MaxIterations: 5, Enabled: tools})
	require.NoError(t, err)

	ctrl := session.NewController(g, session.NewManager(memory.NewStore()))
	opts = append([]Option{WithGraph(g), WithToolConfig(tools), WithProfiles(profiles), WithUser("ada")}, opts...)
	s := NewServer(ctrl, opts...)
	return fixture{server: s, handler: s.Handler(), profiles: profiles, tools: tools}
}

func (f fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, scripted.New())
	w := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMessages_QuestionThenAnswer(t *testing.T) {
	oracle := scripted.New(
		scripted.Call("jarvis", "nutrition_handler", map[string]any{"request": "log eggs"}),
		scripted.Answer("nutrition", "Which meal was that?"),
		scripted.Call("nutrition", "write_food_entry", map[string]any{
			"food": "eggs", "meal_type": "breakfast", "quantity": "2",
		}),
		scripted.Answer("jarvis", "Logged your breakfast."),
	)
	f := newFixture(t, oracle)

	w := f.do(t, http.MethodPost, "/api/threads/t1/messages", MessageRequest{Message: "log eggs"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	first := decode[session.Reply](t, w)
	assert.True(t, first.Suspended)
	assert.Equal(t, "Which meal was that?", first.Text)

	w = f.do(t, http.MethodGet, "/api/threads/t1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cp := decode[domain.Checkpoint](t, w)
	assert.True(t, cp.Pending())
	assert.Len(t, cp.Frames, 2)

	w = f.do(t, http.MethodPost, "/api/threads/t1/resume", ResumeRequest{Value: "breakfast"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := decode[session.Reply](t, w)
	assert.False(t, second.Suspended)
	assert.Equal(t, "Logged your breakfast.", second.Text)
	assert.Equal(t, first.Version+1, second.Version)

	w = f.do(t, http.MethodGet, "/api/graph?thread_id=t1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "graph TD")
}

func TestMessages_Errors(t *testing.T) {
	f := newFixture(t, scripted.New())

	w := f.do(t, http.MethodPost, "/api/threads/t1/resume", ResumeRequest{Value: "yes"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/api/threads/t1/messages", MessageRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/api/threads/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/threads/t1/messages", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToolConfig(t *testing.T) {
	f := newFixture(t, scripted.New())

	w := f.do(t, http.MethodGet, "/api/tool-config", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		Tools    map[string]bool `json:"tools"`
		Disabled []string        `json:"disabled"`
	}](t, w)
	assert.True(t, got.Tools["calendar"])
	assert.Empty(t, got.Disabled)

	w = f.do(t, http.MethodPost, "/api/tool-config", ToolUpdate{ToolName: "calendar", Enabled: false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, f.tools.IsEnabled("calendar"))

	w = f.do(t, http.MethodPost, "/api/tool-config", ToolUpdate{ToolName: "teleport", Enabled: true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "available_tools")

	w = f.do(t, http.MethodPost, "/api/tool-config/bulk", map[string]bool{
		"gmail_handler": false,
		"teleport":      true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	bulk := decode[struct {
		Success bool     `json:"success"`
		Updated []string `json:"updated"`
		Errors  []string `json:"errors"`
	}](t, w)
	assert.False(t, bulk.Success)
	assert.Equal(t, []string{"gmail_handler"}, bulk.Updated)
	assert.Equal(t, []string{"Unknown tool: teleport"}, bulk.Errors)
	assert.False(t, f.tools.IsEnabled("gmail_handler"))
}

func TestCoreMemory(t *testing.T) {
	f := newFixture(t, scripted.New())
	require.NoError(t, f.profiles.Put(context.Background(), "ada", "identity", "name", "Ada"))

	w := f.do(t, http.MethodGet, "/api/core-memory", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[struct {
		UserID     string         `json:"user_id"`
		CoreMemory domain.Profile `json:"core_memory"`
	}](t, w)
	assert.Equal(t, "ada", got.UserID)
	assert.Equal(t, "Ada", got.CoreMemory["identity"]["name"])

	w = f.do(t, http.MethodGet, "/api/core-memory?user_id=bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":"bob"`)
}

type speaker struct {
	audio string
	err   error
	got   string
}

func (s *speaker) Speak(ctx context.Context, text string) (io.ReadCloser, string, error) {
	s.got = text
	if s.err != nil {
		return nil, "", s.err
	}
	return io.NopCloser(strings.NewReader(s.audio)), "audio/mpeg", nil
}

func TestTTS(t *testing.T) {
	sp := &speaker{audio: "ID3-mp3-bytes"}
	f := newFixture(t, scripted.New(), WithSpeaker(sp))

	w := f.do(t, http.MethodPost, "/api/tts", SpeechRequest{Text: "Good morning, Ada."})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=speech.mp3", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "ID3-mp3-bytes", w.Body.String())
	assert.Equal(t, "Good morning, Ada.", sp.got)

	w = f.do(t, http.MethodPost, "/api/tts", SpeechRequest{Text: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"No text provided"}`, w.Body.String())

	sp.err = errors.New("openai: status 401: invalid key")
	w = f.do(t, http.MethodPost, "/api/tts", SpeechRequest{Text: "hello"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "invalid key")

	bare := newFixture(t, scripted.New())
	w = bare.do(t, http.MethodPost, "/api/tts", SpeechRequest{Text: "hello"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORS_AllowedOrigins(t *testing.T) {
	f := newFixture(t, scripted.New(), WithAllowedOrigins("https://app.example.com"))

	req := httptest.NewRequest(http.MethodOptions, "/api/tool-config", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New(nil)
	f := newFixture(t, scripted.New(), WithMetrics(m.Handler()))
	w := f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server, id string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + id
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

// readUntil collects events up to and including the first of type stop.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, stop domain.EventType) []domain.Event {
	t.Helper()
	var events []domain.Event
	for {
		var ev domain.Event
		require.NoError(t, wsjson.Read(ctx, conn, &ev))
		events = append(events, ev)
		if ev.Type == stop {
			return events
		}
	}
}

func TestWebSocket_Conversation(t *testing.T) {
	oracle := scripted.New(
		scripted.Call("jarvis", "think_tool", map[string]any{"thought": "greet"}),
		scripted.Answer("jarvis", "Hello, Ada."),
	)
	f := newFixture(t, oracle)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "s1")

	var hello domain.Event
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, domain.Event{Type: domain.EventSystem, Content: ConnectedText}, hello)

	require.NoError(t, wsjson.Write(ctx, conn, inbound{Message: "hi"}))
	events := readUntil(t, ctx, conn, domain.EventAssistant)

	assert.Equal(t, domain.Event{Type: domain.EventUser, Content: "Processing: hi"}, events[0])
	assert.Contains(t, events, domain.Event{Type: domain.EventNode, Content: "jarvis: calling think_tool"})
	assert.Equal(t, "Hello, Ada.", events[len(events)-1].Content)
	for _, ev := range events[:len(events)-1] {
		assert.NotEqual(t, domain.EventAssistant, ev.Type)
	}
	assert.Equal(t, 1, f.server.Hub().Len())
}

func TestWebSocket_BusyWhileRunning(t *testing.T) {
	oracle := scripted.New(scripted.Step{
		Agent:    "jarvis",
		Decision: ports.Decision{Text: "Done thinking."},
		Delay:    300 * time.Millisecond,
	})
	f := newFixture(t, oracle)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "s1")
	readUntil(t, ctx, conn, domain.EventSystem)

	require.NoError(t, wsjson.Write(ctx, conn, inbound{Message: "first"}))
	readUntil(t, ctx, conn, domain.EventNode)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("second")))

	busy := readUntil(t, ctx, conn, domain.EventError)
	assert.Equal(t, session.BusyText, busy[len(busy)-1].Content)

	done := readUntil(t, ctx, conn, domain.EventAssistant)
	assert.Equal(t, "Done thinking.", done[len(done)-1].Content)
}

func TestWebSocket_DisconnectReleasesSessionDuringRun(t *testing.T) {
	oracle := scripted.New(scripted.Step{
		Agent:    "jarvis",
		Decision: ports.Decision{Text: "Finished anyway."},
		Delay:    time.Second,
	})
	f := newFixture(t, oracle)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "s1")
	readUntil(t, ctx, conn, domain.EventSystem)

	require.NoError(t, wsjson.Write(ctx, conn, inbound{Message: "hi"}))
	readUntil(t, ctx, conn, domain.EventNode)
	require.Equal(t, 1, f.server.Hub().Len())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return f.server.Hub().Len() == 0 },
		500*time.Millisecond, 10*time.Millisecond, "session must be released before the run ends")

	// The detached run still completes and checkpoints the thread.
	assert.Eventually(t, func() bool {
		w := f.do(t, http.MethodGet, "/api/threads/s1", nil)
		if w.Code != http.StatusOK {
			return false
		}
		return decode[domain.Checkpoint](t, w).Status == domain.CheckpointCompleted
	}, 3*time.Second, 50*time.Millisecond)
}

func TestWebSocket_MirrorsSynchronousRequests(t *testing.T) {
	f := newFixture(t, scripted.New(scripted.Answer("jarvis", "From the API.")))
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, srv, "s1")
	readUntil(t, ctx, conn, domain.EventSystem)

	resp, err := http.Post(srv.URL+"/api/threads/s1/messages", "application/json", strings.NewReader(`{"message":"hi"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	events := readUntil(t, ctx, conn, domain.EventAssistant)
	assert.Equal(t, "From the API.", events[len(events)-1].Content)
}
