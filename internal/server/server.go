// Package server exposes fit sessions over REST and JSON-RPC 2.0. Each
// fit is a least-squares session over one of the built-in models.
package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/gominuit/internal/config"
	"github.com/copyleftdev/gominuit/internal/errors"
	"github.com/copyleftdev/gominuit/internal/fit"
	"github.com/copyleftdev/gominuit/internal/logging"
	"github.com/copyleftdev/gominuit/internal/metrics"
	"github.com/copyleftdev/gominuit/internal/render"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// Server implements the HTTP and JSON-RPC server for the fit service.
type Server struct {
	cfg      *config.Config
	logger   Logger
	metrics  *metrics.Metrics
	renderer render.Renderer

	fits   map[string]*entry
	fitsMu sync.RWMutex // protects fits, not the sessions in it
}

// NewServer creates a server. m may be nil.
func NewServer(cfg *config.Config, logger Logger, m *metrics.Metrics) (*Server, error) {
	r, err := render.New(cfg.Fit.Renderer)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		renderer: r,
		fits:     make(map[string]*entry),
	}, nil
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/fits", func(r chi.Router) {
		r.Post("/", s.handleCreate)
		r.Get("/{id}", s.handleStatus)
		r.Post("/{id}/hesse", s.handleHesse)
		r.Post("/{id}/minos", s.handleMinos)
		r.Post("/{id}/profile", s.handleProfile)
		r.Delete("/{id}", s.handleDelete)
	})

	r.Post("/rpc", s.handleJSONRPC)
}

// decode reads a request body strictly: unknown fields are an error.
func (s *Server) decode(r io.Reader, v interface{}) error {
	if err := fit.DecodeStrict(io.LimitReader(r, s.maxBody()), v); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}

func (s *Server) maxBody() int64 {
	if n := s.cfg.HTTP.MaxBodyBytes; n > 0 {
		return n
	}
	return 1 << 20
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Encoding response failed", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	errors.WriteJSON(w, errors.Wrap(err, op))
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := s.decode(r.Body, &req); err != nil {
		s.writeError(w, "create", err)
		return
	}
	v, err := s.create(req)
	if err != nil {
		s.writeError(w, "create", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, v)
}

// handleStatus answers JSON, or the rendered tables with ?format=text.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if r.URL.Query().Get("format") == "text" {
		out, err := s.renderText(id)
		if err != nil {
			s.writeError(w, "status", err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(out)
		return
	}
	v, err := s.status(id)
	if err != nil {
		s.writeError(w, "status", err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleHesse(w http.ResponseWriter, r *http.Request) {
	var req HesseRequest
	if err := s.decode(r.Body, &req); err != nil {
		s.writeError(w, "hesse", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	v, err := s.hesse(req)
	if err != nil {
		s.writeError(w, "hesse", err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleMinos(w http.ResponseWriter, r *http.Request) {
	var req MinosRequest
	if err := s.decode(r.Body, &req); err != nil {
		s.writeError(w, "minos", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	v, err := s.minos(req)
	if err != nil {
		s.writeError(w, "minos", err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req ProfileRequest
	if err := s.decode(r.Body, &req); err != nil {
		s.writeError(w, "profile", err)
		return
	}
	req.ID = chi.URLParam(r, "id")
	v, err := s.profile(req)
	if err != nil {
		s.writeError(w, "profile", err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.remove(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

// handleJSONRPC handles JSON-RPC 2.0 requests
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, s.maxBody())).Decode(&req); err != nil {
		s.respondWithError(w, errors.CodeParseError, "Parse error", nil)
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		s.respondWithError(w, errors.CodeInvalidRequest, "Invalid Request", req.ID)
		return
	}

	var result interface{}
	var err error
	switch req.Method {
	case "fit.create":
		var p CreateRequest
		if err = s.rpcParams(req.Params, &p); err == nil {
			result, err = s.create(p)
		}
	case "fit.status":
		var p IDRequest
		if err = s.rpcParams(req.Params, &p); err == nil {
			result, err = s.status(p.ID)
		}
	case "fit.hesse":
		var p HesseRequest
		if err = s.rpcParams(req.Params, &p); err == nil {
			result, err = s.hesse(p)
		}
	case "fit.minos":
		var p MinosRequest
		if err = s.rpcParams(req.Params, &p); err == nil {
			result, err = s.minos(p)
		}
	case "fit.profile":
		var p ProfileRequest
		if err = s.rpcParams(req.Params, &p); err == nil {
			result, err = s.profile(p)
		}
	case "fit.delete":
		var p IDRequest
		if err = s.rpcParams(req.Params, &p); err == nil {
			err = s.remove(p.ID)
			result = map[string]string{"id": p.ID, "status": "deleted"}
		}
	default:
		s.respondWithError(w, errors.CodeMethodNotFound, "Method not found", req.ID)
		return
	}

	if err != nil {
		e := errors.Wrap(err, req.Method)
		s.respondWithError(w, e.Code, e.Error(), req.ID)
		return
	}
	s.writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

// rpcParams decodes by-name params. A positional array is accepted when
// its single element is the params object.
func (s *Server) rpcParams(raw json.RawMessage, v interface{}) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil || len(list) > 1 {
			return errors.New("params must be an object or a one-element array")
		}
		if len(list) == 0 {
			return s.decode(bytes.NewReader(nil), v)
		}
		raw = list[0]
	}
	return s.decode(bytes.NewReader(raw), v)
}

// respondWithError sends a JSON-RPC 2.0 error response
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Warn("RPC error", map[string]interface{}{
		"code":    code,
		"message": message,
	})
	s.writeJSON(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: message}})
}

// Close drops every stored fit.
func (s *Server) Close() error {
	s.fitsMu.Lock()
	defer s.fitsMu.Unlock()
	s.fits = make(map[string]*entry)
	return nil
}

// Len reports the number of stored fits.
func (s *Server) Len() int {
	s.fitsMu.RLock()
	defer s.fitsMu.RUnlock()
	return len(s.fits)
}
