package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"scribe/internal/logging"
	"scribe/internal/manifest"
	"scribe/internal/services"
	"scribe/internal/session"
	"scribe/internal/transcribe"
)

// Options configures a Server.
type Options struct {
	// Version is reported during MCP initialization.
	Version string
	// DefaultSessionID is used when a tool call omits session_id.
	DefaultSessionID string
	// DefaultFormat applies to file outputs when format is omitted.
	DefaultFormat manifest.Format
	// AutoTextMaxBytes is the default auto-mode inline threshold.
	AutoTextMaxBytes int
}

// Server wires the transcription and session services into an MCP server.
type Server struct {
	transcriber *transcribe.Service
	sessions    *session.Service
	logger      *slog.Logger
	opts        Options
	mcp         *mcpsdk.Server
}

// New creates a server and registers all tools.
func New(transcriber *transcribe.Service, sessions *session.Service, logger *slog.Logger, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.DefaultSessionID == "" {
		opts.DefaultSessionID = "default"
	}
	if opts.DefaultFormat == "" {
		opts.DefaultFormat = manifest.FormatTxt
	}
	if opts.AutoTextMaxBytes <= 0 {
		opts.AutoTextMaxBytes = 200000
	}

	s := &Server{
		transcriber: transcriber,
		sessions:    sessions,
		logger:      logging.NewComponentLogger(logger, "mcpserver"),
		opts:        opts,
	}
	s.mcp = mcpsdk.NewServer(&mcpsdk.Implementation{Name: "scribe", Version: opts.Version}, nil)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until the context is canceled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcpsdk.StdioTransport{})
}

// Handler returns a streamable HTTP handler serving this MCP server.
func (s *Server) Handler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.mcp
	}, nil)
}

// resolveSession falls back to the configured default session.
func (s *Server) resolveSession(sessionID string) string {
	if sessionID == "" {
		return s.opts.DefaultSessionID
	}
	return sessionID
}

// resolveFormat falls back to the configured default output format.
func (s *Server) resolveFormat(format string) manifest.Format {
	if format == "" {
		return s.opts.DefaultFormat
	}
	return manifest.Format(format)
}

// errResult converts a service failure into a tool error whose text payload
// is a JSON object with the stable code and the message.
func errResult(err error) *mcpsdk.CallToolResult {
	payload, marshalErr := json.Marshal(map[string]string{
		"code":  services.Code(err),
		"error": err.Error(),
	})
	if marshalErr != nil {
		payload = []byte(`{"code":"` + services.CodeInternal + `"}`)
	}
	return &mcpsdk.CallToolResult{
		IsError: true,
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(payload)}},
	}
}
