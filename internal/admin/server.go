package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openbao-tools/realmsecrets/internal/baoclient"
	rserrors "github.com/openbao-tools/realmsecrets/internal/errors"
	"github.com/openbao-tools/realmsecrets/internal/logging"
	"github.com/openbao-tools/realmsecrets/internal/metrics"
)

// ServerConfig holds configuration for the admin HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8201".
	Addr string

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	WriteTimeout time.Duration
}

// DefaultServerConfig returns the default admin server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":8201",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Server exposes the admin resource over HTTP along with health and
// metrics endpoints.
type Server struct {
	config   ServerConfig
	resource *Resource
	ready    func(ctx context.Context) bool
	logger   *logging.Logger
	metrics  *metrics.Recorder
	server   *http.Server
}

// NewServer creates the admin HTTP server. ready probes the engine for
// the health endpoint; nil means the endpoint only reports liveness.
func NewServer(config ServerConfig, resource *Resource, ready func(ctx context.Context) bool, logger *logging.Logger) *Server {
	return &Server{
		config:   config,
		resource: resource,
		ready:    ready,
		logger:   logger.Named("admin-server"),
		metrics:  metrics.NewRecorder(),
	}
}

// Handler builds the route table. Exposed for httptest use.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/realms/{realm}/secrets", s.handleList)
	mux.HandleFunc("GET /admin/realms/{realm}/secrets/{id}", s.handleGet)
	mux.HandleFunc("PUT /admin/realms/{realm}/secrets/{id}", s.handlePut)
	mux.HandleFunc("DELETE /admin/realms/{realm}/secrets/{id}", s.handleDelete)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	metrics.InitMetrics()
	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	go func() {
		s.logger.Info("admin server listening on %s", s.config.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server: %v", err)
		}
	}()
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	realm := r.PathValue("realm")
	ids, err := s.resource.ListSecretIDs(r.Context(), realm)
	if err != nil {
		s.writeError(w, "list", err)
		return
	}
	s.writeJSON(w, "list", http.StatusOK, map[string]interface{}{"secret_ids": ids})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	secret, err := s.resource.GetSecret(r.Context(), r.PathValue("realm"), r.PathValue("id"))
	if err != nil {
		s.writeError(w, "get", err)
		return
	}
	s.writeJSON(w, "get", http.StatusOK, secret)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Secret string `json:"secret"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.writeStatus(w, "put", http.StatusBadRequest, "request body must be a JSON object")
			return
		}
	}

	length := 0
	if raw := r.URL.Query().Get("length"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeStatus(w, "put", http.StatusBadRequest, "length must be an integer")
			return
		}
		length = parsed
	}

	var charsets []string
	if raw := r.URL.Query().Get("charset"); raw != "" {
		charsets = strings.Split(raw, ",")
	}

	secret, err := s.resource.PutSecret(r.Context(), r.PathValue("realm"), r.PathValue("id"), body.Secret, length, charsets)
	if err != nil {
		s.writeError(w, "put", err)
		return
	}
	s.writeJSON(w, "put", http.StatusOK, secret)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.resource.DeleteSecret(r.Context(), r.PathValue("realm"), r.PathValue("id")); err != nil {
		s.writeError(w, "delete", err)
		return
	}
	s.metrics.RecordAdminRequest("delete", "204")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{"status": "ok"}
	code := http.StatusOK
	if s.ready != nil {
		if s.ready(r.Context()) {
			status["engine"] = "ready"
		} else {
			status["engine"] = "unreachable"
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	s.writeJSON(w, "health", code, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, operation string, code int, doc interface{}) {
	s.metrics.RecordAdminRequest(operation, strconv.Itoa(code))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(doc)
}

func (s *Server) writeStatus(w http.ResponseWriter, operation string, code int, message string) {
	s.writeJSON(w, operation, code, map[string]interface{}{"error": message})
}

// writeError maps the error taxonomy onto HTTP statuses. Error payloads
// carry only the typed error message, which never contains secret
// material.
func (s *Server) writeError(w http.ResponseWriter, operation string, err error) {
	var status int
	switch {
	case rserrors.IsInvalidReference(err):
		status = http.StatusBadRequest
	case isAuthorization(err):
		status = http.StatusForbidden
	case rserrors.IsNotFound(err):
		status = http.StatusNotFound
	case isBadParameter(err):
		status = http.StatusBadRequest
	default:
		s.logger.Error("admin %s failed: %v", operation, err)
		status = http.StatusInternalServerError
	}
	s.writeStatus(w, operation, status, err.Error())
}

func isAuthorization(err error) bool {
	var ae rserrors.AuthorizationError
	return errors.As(err, &ae)
}

// isBadParameter recognizes generation parameter errors, which are the
// caller's fault rather than the deployment's.
func isBadParameter(err error) bool {
	var ce rserrors.ConfigError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Field == "length" || ce.Field == "charset"
}

// Ready returns a readiness probe bound to the engine at address.
func Ready(address, caCertFile string, logger *logging.Logger) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		client, err := baoclient.New(address, logger)
		if err != nil {
			return false
		}
		if caCertFile != "" {
			client.WithCACertificateFile(caCertFile)
		}
		return client.Ready(ctx)
	}
}
