package server

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/copyleftdev/gominuit/internal/errors"
	"github.com/copyleftdev/gominuit/internal/fit"
	"github.com/copyleftdev/gominuit/internal/logging"
	"github.com/copyleftdev/gominuit/internal/render"
)

// entry is one stored fit. Sessions are not safe for concurrent use, so
// every operation on one holds mu.
type entry struct {
	mu      sync.Mutex
	id      string
	model   string
	created time.Time
	cost    *fit.LeastSquares
	session *fit.Session
}

// view snapshots the session; the caller holds e.mu.
func (e *entry) view() *FitView {
	s := e.session
	v := &FitView{
		ID:          e.id,
		Model:       e.model,
		Created:     e.created,
		NDof:        e.cost.NDof(nfree(s)),
		Params:      newParamViews(s.Params()),
		Diagnostics: diagnosticStrings(s.Diagnostics()),
	}
	if fm, ok := s.FMin(); ok {
		v.FMin = newFMinView(fm)
	}
	if m, err := s.Matrix(false, false); err == nil {
		v.Covariance = make([][]Float, len(m.Data))
		for i, row := range m.Data {
			v.Covariance[i] = floats(row)
		}
	}
	if s.HasMinos() {
		v.MErrors = newMErrorViews(s.MErrors())
	}
	return v
}

// render writes the human-readable tables of the fit.
func (e *entry) render(w io.Writer, r render.Renderer) error {
	s := e.session
	if fm, ok := s.FMin(); ok {
		if err := r.FMin(w, fm); err != nil {
			return err
		}
	}
	if err := r.Params(w, s.Params()); err != nil {
		return err
	}
	if m, err := s.Matrix(true, true); err == nil {
		if err := r.Matrix(w, m); err != nil {
			return err
		}
	}
	if s.HasMinos() {
		return r.MErrors(w, s.MErrors())
	}
	return nil
}

func nfree(s *fit.Session) int {
	n := 0
	for _, f := range s.Fixed() {
		if !f {
			n++
		}
	}
	return n
}

// create builds, stores and runs a new fit.
func (s *Server) create(req CreateRequest) (*FitView, error) {
	m, ok := models[req.Model]
	if !ok {
		return nil, errors.Errorf("unknown model %q (known: %s)", req.Model, strings.Join(modelNames(), ", "))
	}
	cost, err := fit.NewLeastSquares(req.X, req.Y, req.YErr, m.fn)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	logger := s.logger.WithFields(map[string]interface{}{"fit_id": id, "model": req.Model})
	opts := append(s.cfg.Fit.SessionOptions(),
		fit.WithErrordef(fit.LeastSquaresErrordef),
		fit.WithLogger(logging.NewZapLogger(logger).Named("fit")),
		fit.WithMetrics(s.metrics),
	)
	session, err := fit.New(cost.Callable(), m.params, m.configs(req.Params), opts...)
	if err != nil {
		return nil, err
	}

	e := &entry{id: id, model: req.Model, created: time.Now().UTC(), cost: cost, session: session}
	if err := e.run(req); err != nil {
		return nil, err
	}

	s.fitsMu.Lock()
	if limit := s.cfg.Fit.MaxSessions; limit > 0 && len(s.fits) >= limit {
		s.fitsMu.Unlock()
		return nil, errors.Errorf("fit limit of %d reached, delete a fit first", limit).
			WithStatus(http.StatusServiceUnavailable, errors.CodeFitFailed)
	}
	s.fits[id] = e
	s.fitsMu.Unlock()

	logger.Info("Fit created", map[string]interface{}{"valid": session.MigradOK(), "nfcn": session.NCalls()})

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view(), nil
}

// run performs the operations requested at creation time.
func (e *entry) run(req CreateRequest) error {
	if _, err := e.session.Migrad(fit.MigradConfig{NCall: req.NCall}); err != nil {
		return err
	}
	if req.Hesse {
		if _, err := e.session.Hesse(0); err != nil {
			return err
		}
	}
	if req.Minos {
		if _, err := e.session.Minos(fit.MinosConfig{}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) lookup(id string) (*entry, error) {
	if id == "" {
		return nil, errors.New("fit id is required")
	}
	s.fitsMu.RLock()
	defer s.fitsMu.RUnlock()
	e, ok := s.fits[id]
	if !ok {
		return nil, errors.NotFound(id)
	}
	return e, nil
}

// withFit runs fn on the fit under its lock and returns the resulting view.
func (s *Server) withFit(id string, fn func(*fit.Session) error) (*FitView, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		if err := fn(e.session); err != nil {
			return nil, err
		}
	}
	return e.view(), nil
}

func (s *Server) status(id string) (*FitView, error) {
	return s.withFit(id, nil)
}

func (s *Server) hesse(req HesseRequest) (*FitView, error) {
	return s.withFit(req.ID, func(fs *fit.Session) error {
		_, err := fs.Hesse(req.MaxCall)
		return err
	})
}

func (s *Server) minos(req MinosRequest) (*FitView, error) {
	return s.withFit(req.ID, func(fs *fit.Session) error {
		_, err := fs.Minos(fit.MinosConfig{Params: req.Params, Sigma: req.Sigma, CL: req.CL, MaxCall: req.MaxCall})
		return err
	})
}

func (s *Server) profile(req ProfileRequest) (*ProfileView, error) {
	e, err := s.lookup(req.ID)
	if err != nil {
		return nil, err
	}
	if req.Bins == 0 {
		req.Bins = 20
	}
	if req.Sigma == 0 {
		req.Sigma = 2
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	res, err := e.session.MnProfile(req.Param, req.Bins, fit.Sigmas(req.Sigma), true)
	if err != nil {
		return nil, err
	}
	return &ProfileView{Param: res.Param, X: floats(res.X), Y: floats(res.Y), Converged: res.Converged}, nil
}

func (s *Server) remove(id string) error {
	s.fitsMu.Lock()
	defer s.fitsMu.Unlock()
	if _, ok := s.fits[id]; !ok {
		return errors.NotFound(id)
	}
	delete(s.fits, id)
	return nil
}

// renderText renders a stored fit with the configured renderer.
func (s *Server) renderText(id string) ([]byte, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var buf bytes.Buffer
	if err := e.render(&buf, s.renderer); err != nil {
		return nil, fmt.Errorf("render fit %s: %w", id, err)
	}
	return buf.Bytes(), nil
}
