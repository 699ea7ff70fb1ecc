// Package enginetest provides an in-memory fake of the OpenBao / Vault
// HTTP API for use in tests: Kubernetes login, health, and KV v1/v2
// read/write/list/delete with the real wire shapes.
package enginetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// Engine is a fake secret engine. Configure Mount and Version before
// starting; mutate the Store through the accessors while running.
type Engine struct {
	Mount   string
	Version int

	// Token is the caller token issued by login and required on every
	// KV operation.
	Token string

	// FailLogin makes the login endpoint reject every attempt.
	FailLogin bool

	// BeforeRead, when set, runs before each secret read completes.
	// Tests use it to gate concurrent readers.
	BeforeRead func(path string)

	mu    sync.Mutex
	store map[string]map[string]string

	logins int64
	reads  int64
	writes int64

	server *httptest.Server
}

// New creates a fake engine for the given mount and KV version.
func New(mount string, version int) *Engine {
	return &Engine{
		Mount:   mount,
		Version: version,
		Token:   "test-caller-token",
		store:   make(map[string]map[string]string),
	}
}

// Start launches the HTTP server and returns its base address.
func (e *Engine) Start() string {
	e.server = httptest.NewServer(http.HandlerFunc(e.handle))
	return e.server.URL
}

// Close shuts the server down.
func (e *Engine) Close() {
	if e.server != nil {
		e.server.Close()
	}
}

// Put stores a record directly, bypassing HTTP.
func (e *Engine) Put(path string, record map[string]string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	copied := make(map[string]string, len(record))
	for k, v := range record {
		copied[k] = v
	}
	e.store[path] = copied
}

// Record returns the stored record at path, or nil.
func (e *Engine) Record(path string) map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store[path]
}

// Logins returns how many login calls succeeded.
func (e *Engine) Logins() int64 { return atomic.LoadInt64(&e.logins) }

// Reads returns how many secret reads were served.
func (e *Engine) Reads() int64 { return atomic.LoadInt64(&e.reads) }

// Writes returns how many secret writes were served.
func (e *Engine) Writes() int64 { return atomic.LoadInt64(&e.writes) }

func (e *Engine) handle(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/v1/auth/kubernetes/login" && r.Method == http.MethodPost:
		e.handleLogin(w, r)
	case r.URL.Path == "/v1/sys/health":
		writeJSON(w, http.StatusOK, map[string]interface{}{"initialized": true, "sealed": false})
	default:
		e.handleKV(w, r)
	}
}

func (e *Engine) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
		JWT  string `json:"jwt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Role == "" || body.JWT == "" {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"missing client token"}})
		return
	}
	if e.FailLogin {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"errors": []string{"permission denied"}})
		return
	}
	atomic.AddInt64(&e.logins, 1)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"auth": map[string]interface{}{"client_token": e.Token},
	})
}

func (e *Engine) handleKV(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Vault-Token") != e.Token {
		writeJSON(w, http.StatusForbidden, map[string]interface{}{"errors": []string{"permission denied"}})
		return
	}

	mountPrefix := "/v1/" + e.Mount + "/"
	if !strings.HasPrefix(r.URL.Path, mountPrefix) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": []string{}})
		return
	}
	rel := strings.TrimPrefix(r.URL.Path, mountPrefix)

	if e.Version == 2 {
		switch {
		case strings.HasPrefix(rel, "data/"):
			rel = strings.TrimPrefix(rel, "data/")
		case strings.HasPrefix(rel, "metadata/"):
			rel = strings.TrimPrefix(rel, "metadata/")
		default:
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": []string{}})
			return
		}
	}

	switch r.Method {
	case http.MethodGet:
		e.serveRead(w, rel)
	case http.MethodPost, http.MethodPut:
		e.serveWrite(w, r, rel)
	case http.MethodDelete:
		e.serveDelete(w, rel)
	case "LIST":
		e.serveList(w, strings.TrimSuffix(rel, "/"))
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"errors": []string{"unsupported operation"}})
	}
}

func (e *Engine) serveRead(w http.ResponseWriter, path string) {
	if e.BeforeRead != nil {
		e.BeforeRead(path)
	}
	e.mu.Lock()
	record, ok := e.store[path]
	e.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": []string{}})
		return
	}
	atomic.AddInt64(&e.reads, 1)
	if e.Version == 2 {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{
				"data":     record,
				"metadata": map[string]interface{}{"version": 1},
			},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": record})
}

func (e *Engine) serveWrite(w http.ResponseWriter, r *http.Request, path string) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"invalid request body"}})
		return
	}

	payload := body
	if e.Version == 2 {
		inner, ok := body["data"].(map[string]interface{})
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": []string{"missing data wrapper"}})
			return
		}
		payload = inner
	}

	record := make(map[string]string, len(payload))
	for k, v := range payload {
		if s, ok := v.(string); ok {
			record[k] = s
		}
	}

	e.mu.Lock()
	e.store[path] = record
	e.mu.Unlock()
	atomic.AddInt64(&e.writes, 1)
	writeJSON(w, http.StatusOK, map[string]interface{}{})
}

func (e *Engine) serveDelete(w http.ResponseWriter, path string) {
	e.mu.Lock()
	delete(e.store, path)
	e.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (e *Engine) serveList(w http.ResponseWriter, prefix string) {
	e.mu.Lock()
	seen := map[string]bool{}
	for path := range e.store {
		if prefix != "" && !strings.HasPrefix(path, prefix+"/") {
			continue
		}
		rest := path
		if prefix != "" {
			rest = strings.TrimPrefix(path, prefix+"/")
		}
		if idx := strings.Index(rest, "/"); idx >= 0 {
			seen[rest[:idx+1]] = true
		} else {
			seen[rest] = true
		}
	}
	e.mu.Unlock()

	if len(seen) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"errors": []string{}})
		return
	}

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"keys": keys},
	})
}

func writeJSON(w http.ResponseWriter, status int, doc map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(doc)
}
