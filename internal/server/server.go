// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/ThinkInAIXYZ/go-mcp/server"
	"go.uber.org/zap"

	"mcp-simple-bolus/internal/bolus"
	"mcp-simple-bolus/internal/config"
	"mcp-simple-bolus/internal/delivery"
	"mcp-simple-bolus/internal/metrics"
	"mcp-simple-bolus/internal/storage"
)

const serverVersion = "1.0.0"

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type BolusServer struct {
	server     *server.Server
	httpServer *http.Server
	storage    *storage.SQLiteStorage
	recorder   *delivery.Recorder
	delegate   *bolusDelegate
	auth       *PasscodeAuthenticator
	donor      bolus.Donor
	metrics    *metrics.Metrics
	sessions   *sessionRegistry
	tools      map[string]toolHandler
	logger     *zap.Logger
	config     config.Config
}

func NewBolusServer(cfg config.Config, logger *zap.Logger, m *metrics.Metrics) (*BolusServer, error) {
	// Initialize database
	stor, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	recorder := delivery.NewRecorder(stor, logger.Named("delivery"), m.ObserveDose)

	bolusServer := &BolusServer{
		storage:  stor,
		recorder: recorder,
		delegate: newBolusDelegate(stor, recorder, cfg.Dosing),
		auth:     NewPasscodeAuthenticator(cfg.Auth.Passcode, logger.Named("auth")),
		metrics:  m,
		sessions: newSessionRegistry(),
		logger:   logger,
		config:   cfg,
	}
	if cfg.Memory.Enabled {
		bolusServer.donor = NewMemoryClient(cfg.Memory)
	}
	if cfg.Auth.Passcode == "" {
		logger.Warn("No bolus passcode configured; every bolus will be refused")
	}

	mcpServer, err := server.NewServer(
		nil, // transport is handled by handleHTTP
		server.WithServerInfo(protocol.Implementation{
			Name:    "simple-bolus",
			Version: serverVersion,
		}),
	)
	if err != nil {
		stor.Close()
		return nil, fmt.Errorf("failed to create MCP server: %w", err)
	}
	bolusServer.server = mcpServer

	bolusServer.registerTools()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	bolusServer.httpServer = &http.Server{
		Addr:    addr,
		Handler: bolusServer.Handler(),
	}

	return bolusServer, nil
}

// Handler routes MCP tool calls on / and Prometheus metrics on /metrics.
func (s *BolusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/", s.handleHTTP)
	return mux
}

func (s *BolusServer) handleHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request protocol.CallToolRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown tool: %s", request.Name), http.StatusNotFound)
		return
	}

	result, err := handler(r.Context(), &request)
	if err != nil {
		s.logger.Debug("Tool call failed", zap.String("tool", request.Name), zap.Error(err))
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, bolus.ErrSubmitInProgress):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func (s *BolusServer) Start(ctx context.Context) error {
	s.logger.Info("Starting simple bolus server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop drains HTTP, closes open sessions and waits for background
// donations and dose records before closing storage. Storage stays open if
// the drain does not finish before ctx is done.
func (s *BolusServer) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("Server shutdown did not complete, leaving storage open", zap.Error(err))
			return fmt.Errorf("failed to shut down server: %w", err)
		}
	}
	var err error
	for _, sess := range s.sessions.removeAll() {
		s.metrics.SessionClosed()
		s.sessions.release(sess)
	}
	s.sessions.wait()
	s.recorder.Wait()
	if s.storage != nil {
		if cerr := s.storage.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func (s *BolusServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
