package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/jarvis"
	"github.com/aretw0/jarvis/internal/presentation/diagram"
	"github.com/aretw0/jarvis/pkg/bridge"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/domain"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/registry"
	"github.com/aretw0/jarvis/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the mermaid diagram of the main agent.
const GraphURI = "jarvis://graph"

// ChatArgs are the arguments of the chat tool.
type ChatArgs struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
}

// PendingArgs are the arguments of the pending tool.
type PendingArgs struct {
	ThreadID string `json:"thread_id"`
}

// ChatResponse is the structured result of the chat and pending tools.
type ChatResponse struct {
	ThreadID  string `json:"thread_id" jsonschema_description:"The conversation thread"`
	Text      string `json:"text" jsonschema_description:"The answer, or the question awaiting a reply"`
	Suspended bool   `json:"suspended" jsonschema_description:"True when text is a question and the next chat call answers it"`
	IsError   bool   `json:"is_error,omitempty" jsonschema_description:"True when the run ended on an error"`
	Version   int    `json:"version" jsonschema_description:"Checkpoint version after the call"`
	// Progress lists the node events emitted while the run executed.
	Progress []string `json:"progress,omitempty" jsonschema_description:"Progress notes emitted during the run"`
}

// CapabilityInfo describes one registered capability.
type CapabilityInfo struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Enabled          bool   `json:"enabled"`
	RequiresApproval bool   `json:"requires_approval,omitempty"`
}

// CapabilityList is the structured result of list_capabilities.
type CapabilityList struct {
	Capabilities []CapabilityInfo `json:"capabilities"`
}

// Server exposes a jarvis controller as an MCP server.
type Server struct {
	ctrl      *session.Controller
	reg       *registry.Registry
	graph     *graph.Graph
	user      string
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithUser sets the user the capabilities act for.
func WithUser(id string) Option {
	return func(s *Server) {
		s.user = id
	}
}

// WithGraph exposes g as the jarvis://graph resource.
func WithGraph(g *graph.Graph) Option {
	return func(s *Server) {
		s.graph = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(ctrl *session.Controller, reg *registry.Registry, opts ...Option) *Server {
	s := &Server{
		ctrl:      ctrl,
		reg:       reg,
		user:      capabilities.DefaultUser,
		logger:    slog.New(slog.DiscardHandler),
		mcpServer: server.NewMCPServer("jarvis-mcp", strings.TrimSpace(jarvis.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	chatTool := mcp.NewTool("chat",
		mcp.WithDescription("Send a message to jarvis. If the thread is waiting on a question, the message answers it."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread id")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The user's message")),
		mcp.WithOutputSchema[ChatResponse](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handleChat))

	pendingTool := mcp.NewTool("pending",
		mcp.WithDescription("Show the question a thread is waiting on, if any."),
		mcp.WithString("thread_id", mcp.Required(), mcp.Description("Conversation thread id")),
		mcp.WithOutputSchema[ChatResponse](),
	)
	s.mcpServer.AddTool(pendingTool, mcp.NewStructuredToolHandler(s.handlePending))

	listTool := mcp.NewTool("list_capabilities",
		mcp.WithDescription("List the capabilities registered with jarvis and whether each is enabled."),
		mcp.WithOutputSchema[CapabilityList](),
	)
	s.mcpServer.AddTool(listTool, mcp.NewStructuredToolHandler(s.handleList))
}

func (s *Server) handleChat(ctx context.Context, _ mcp.CallToolRequest, args ChatArgs) (ChatResponse, error) {
	if strings.TrimSpace(args.ThreadID) == "" {
		return ChatResponse{}, errors.New("thread_id is required")
	}

	var (
		mu       sync.Mutex
		progress []string
	)
	sink := ports.EventSinkFunc(func(_ context.Context, ev domain.Event) {
		if ev.Type != domain.EventNode {
			return
		}
		mu.Lock()
		progress = append(progress, ev.Content)
		mu.Unlock()
	})
	ctx = capabilities.WithUser(ctx, s.user)
	ctx = graph.WithHooks(ctx, bridge.ProgressHooks(sink))

	reply, err := s.ctrl.Handle(ctx, args.ThreadID, args.Message, sink)
	if err != nil {
		s.logger.WarnContext(ctx, "MCP chat failed", "thread_id", args.ThreadID, "err", err)
		if errors.Is(err, domain.ErrThreadBusy) {
			return ChatResponse{}, errors.New(session.BusyText)
		}
		return ChatResponse{}, err
	}
	return ChatResponse{
		ThreadID:  reply.ThreadID,
		Text:      reply.Text,
		Suspended: reply.Suspended,
		IsError:   reply.IsError,
		Version:   reply.Version,
		Progress:  progress,
	}, nil
}

func (s *Server) handlePending(ctx context.Context, _ mcp.CallToolRequest, args PendingArgs) (ChatResponse, error) {
	cp, err := s.ctrl.Pending(ctx, args.ThreadID)
	if errors.Is(err, domain.ErrNoPendingSuspension) {
		return ChatResponse{ThreadID: args.ThreadID, Text: "Nothing is pending on this thread."}, nil
	}
	if err != nil {
		return ChatResponse{}, fmt.Errorf("loading thread: %w", err)
	}
	return ChatResponse{
		ThreadID:  cp.ThreadID,
		Text:      cp.Question,
		Suspended: true,
		Version:   cp.Version,
	}, nil
}

func (s *Server) handleList(_ context.Context, _ mcp.CallToolRequest, _ map[string]any) (CapabilityList, error) {
	all := s.reg.All()
	out := CapabilityList{Capabilities: make([]CapabilityInfo, 0, len(all))}
	for _, d := range all {
		out.Capabilities = append(out.Capabilities, CapabilityInfo{
			Name:             d.Name,
			Description:      d.Description,
			Enabled:          d.Enabled,
			RequiresApproval: d.RequiresApproval,
		})
	}
	return out, nil
}

func (s *Server) registerResources() {
	if s.graph == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Agent graph",
		mcp.WithResourceDescription("Mermaid diagram of the main agent graph"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      GraphURI,
				MIMEType: "text/plain",
				Text:     diagram.GenerateMermaid(s.graph, nil),
			},
		}, nil
	})
}
