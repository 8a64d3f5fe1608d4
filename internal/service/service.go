// Package service implements the HTTP query API.
package service

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/jacoelho/xpath"
	"github.com/jacoelho/xpath/errors"
	"github.com/jacoelho/xpath/internal/log"
	"github.com/jacoelho/xpath/pkg/htmltree"
)

const defaultMaxBodyBytes = 4 << 20

// Server serves XPath queries over HTTP.
type Server struct {
	logger       zerolog.Logger
	maxBodyBytes int64
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBodyBytes caps the accepted request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) { s.maxBodyBytes = n }
}

// WithLogger replaces the default component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New returns a Server with defaults applied.
func New(opts ...Option) *Server {
	s := &Server{
		logger:       log.WithComponent("service"),
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler: the query endpoint plus health and
// metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(carryRequestID)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/v1/query", s.handleQuery)
	return r
}

// carryRequestID copies chi's request ID into the logging context so
// handlers and any code they call log it uniformly.
func carryRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := log.ContextWithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type queryRequest struct {
	// Document is the XML or HTML source to query.
	Document string `json:"document"`
	// HTML selects the HTML5 parser instead of the XML parser.
	HTML bool `json:"html,omitempty"`
	// Expression is the XPath expression to evaluate against the
	// document root.
	Expression string `json:"expression"`
	// Namespaces binds expression prefixes to namespace URIs.
	Namespaces map[string]string `json:"namespaces,omitempty"`
}

type queryResponse struct {
	Type    string   `json:"type"`
	Results []string `json:"results"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req queryRequest
	body := http.MaxBytesReader(w, r.Body, s.maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Expression == "" {
		s.writeError(w, r, http.StatusBadRequest, errorResponse{Error: "expression is required"})
		return
	}
	if req.Document == "" {
		s.writeError(w, r, http.StatusBadRequest, errorResponse{Error: "document is required"})
		return
	}

	doc, err := s.parse(req)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, toErrorResponse(err))
		return
	}

	result, err := xpath.Query(doc, req.Expression, req.Namespaces)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, toErrorResponse(err))
		return
	}

	queryDuration.Observe(time.Since(start).Seconds())
	queriesTotal.WithLabelValues("ok").Inc()

	s.logger.Debug().
		Str("request_id", log.RequestIDFromContext(r.Context())).
		Str("expression", req.Expression).
		Str("type", result.Type().String()).
		Dur("elapsed", time.Since(start)).
		Msg("query evaluated")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toQueryResponse(result))
}

func (s *Server) parse(req queryRequest) (*xpath.Node, error) {
	if req.HTML {
		return htmltree.Parse(strings.NewReader(req.Document))
	}
	return xpath.Parse(strings.NewReader(req.Document))
}

func toQueryResponse(result xpath.Result) queryResponse {
	resp := queryResponse{Type: result.Type().String()}
	if result.Type() == xpath.NodeSetResult {
		nodes := result.Nodes()
		resp.Results = make([]string, 0, len(nodes))
		for _, n := range nodes {
			resp.Results = append(resp.Results, xpath.OutputXML(n))
		}
		return resp
	}
	resp.Results = []string{result.String()}
	return resp
}

func toErrorResponse(err error) errorResponse {
	if q, ok := errors.AsQuery(err); ok {
		return errorResponse{Error: q.Message, Code: q.Code}
	}
	return errorResponse{Error: err.Error()}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, resp errorResponse) {
	queriesTotal.WithLabelValues("error").Inc()
	s.logger.Warn().
		Str("request_id", log.RequestIDFromContext(r.Context())).
		Str("code", resp.Code).
		Str("error", resp.Error).
		Msg("query rejected")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
