package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"friday/internal/domain"
	"friday/internal/metrics"
	"friday/internal/nlu"
	"friday/internal/session"
	"friday/internal/skills"
)

const ReadHeaderTimeout = 5 * time.Second

type Server struct {
	catalog  *skills.Catalog
	sessions *session.Store
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
}

func New(catalog *skills.Catalog, sessions *session.Store, m *metrics.Metrics, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{catalog: catalog, sessions: sessions, metrics: m, logger: logger}
}

// HTTPServer wraps the routes in an http.Server listening on addr.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: ReadHeaderTimeout,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(httpLogger.Logger("router", s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("active"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/understand", s.understand)
		r.Post("/sessions", s.createSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.deleteSession)
			r.Post("/turns", s.turn)
		})
	})
	return r
}

func (s *Server) understand(w http.ResponseWriter, req *http.Request) {
	var body domain.UnderstandRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}

	resp := domain.UnderstandResponse{Structures: []domain.StructureView{}}
	for st := range nlu.NewProcessor(s.catalog.Understander()).Structs(body.Text) {
		resp.Structures = append(resp.Structures, domain.NewStructureView(st))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) createSession(w http.ResponseWriter, _ *http.Request) {
	id := uuid.NewString()
	s.sessions.Get(id)
	s.metrics.SetSessions(s.sessions.Len())
	writeJSON(w, http.StatusCreated, map[string]any{"session_id": id})
}

func (s *Server) deleteSession(w http.ResponseWriter, req *http.Request) {
	s.sessions.Delete(chi.URLParam(req, "sessionID"))
	s.metrics.SetSessions(s.sessions.Len())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) turn(w http.ResponseWriter, req *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(req, "sessionID"))
	var body domain.TurnRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid json"})
		return
	}
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "session id is required"})
		return
	}
	if strings.TrimSpace(body.Text) == "" && !body.Final {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "text is required"})
		return
	}

	iface := &httpInterface{}
	s.metrics.ObserveTurn(body.Final, iface.Kind())
	dispatched, err := s.sessions.Get(sessionID).Turn(req.Context(), body.Text, body.Final, s.metrics.Instrument(s.catalog.Dispatcher(iface)))
	s.metrics.SetSessions(s.sessions.Len())

	resp := domain.TurnResponse{
		SessionID:  sessionID,
		Outputs:    iface.collected(),
		Dispatched: []domain.StructureView{},
	}
	for _, st := range dispatched {
		resp.Dispatched = append(resp.Dispatched, domain.NewStructureView(st))
	}
	if err != nil {
		s.logger.WithError(err).WithField("session_id", sessionID).Warn("turn finished with errors")
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// httpInterface collects handler output for the response. It cannot ask
// follow-up questions within a request.
type httpInterface struct {
	mu      sync.Mutex
	outputs []string
}

func (h *httpInterface) Kind() string { return "http" }

func (h *httpInterface) Output(_ context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outputs = append(h.outputs, text)
	return nil
}

func (h *httpInterface) Input(context.Context, string) (string, error) {
	return "", skills.ErrInputUnavailable
}

func (h *httpInterface) collected() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.outputs...)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
