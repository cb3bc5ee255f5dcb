package sqlview

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// TableRowLimit caps the rows returned when browsing a table.
const TableRowLimit = 100

type queryRequest struct {
	Query string `json:"query"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Option applies a configuration option to the given server.
type Option func(s *Server)

func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithCORS(enabled bool) Option {
	return func(s *Server) {
		s.cors = enabled
	}
}

// Server exposes a Store over HTTP.
type Server struct {
	store   Store
	logger  logrus.FieldLogger
	cors    bool
	handler http.Handler
}

func NewServer(store Store, options ...Option) *Server {
	s := &Server{
		store:  store,
		logger: logrus.StandardLogger(),
		cors:   true,
	}
	for _, o := range options {
		o(s)
	}

	// Match on the escaped path so a table name may contain "/".
	r := mux.NewRouter().UseEncodedPath()
	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)
	r.Handle("/", instrument("index", http.HandlerFunc(s.handleIndex))).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	api := r.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = r.NotFoundHandler
	api.MethodNotAllowedHandler = r.MethodNotAllowedHandler
	api.Handle("/tables", instrument("tables", http.HandlerFunc(s.handleTables))).Methods(http.MethodGet)
	api.Handle("/table/{name}", instrument("table", http.HandlerFunc(s.handleTable))).Methods(http.MethodGet)
	api.Handle("/query", instrument("query", http.HandlerFunc(s.handleQuery))).Methods(http.MethodPost)
	api.Handle("/schema/{name}", instrument("schema", http.HandlerFunc(s.handleSchema))).Methods(http.MethodGet)

	var h http.Handler = r
	if s.cors {
		h = cors.AllowAll().Handler(h)
	}
	s.handler = logRequests(s.logger, h)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// IsReadOnlyStatement reports whether query starts with SELECT once
// surrounding whitespace is trimmed, ignoring case. It does not parse the
// statement.
func IsReadOnlyStatement(query string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "SELECT")
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexPage)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	tables, err := s.store.ListTables(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, tables)
}

// tableName returns the unescaped {name} route variable.
func tableName(r *http.Request) string {
	name := mux.Vars(r)["name"]
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, ErrNotFound)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := tableName(r)

	rows, err := s.store.FetchRows(r.Context(), name, TableRowLimit)
	if errors.Is(err, ErrTableNotFound) {
		s.writeError(w, http.StatusNotFound, ErrTableNotFound)
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	countRows("table", len(rows))
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, ErrInvalidRequest)
		return
	}

	if !IsReadOnlyStatement(req.Query) {
		statementsRejected.Inc()
		s.writeError(w, http.StatusBadRequest, ErrNotReadOnly)
		return
	}

	rows, err := s.store.RunStatement(r.Context(), req.Query)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	countRows("query", len(rows))
	s.writeJSON(w, http.StatusOK, rows)
}

// handleSchema does not check that the table exists; an unknown table
// yields an empty list.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	name := tableName(r)

	columns, err := s.store.ListColumns(r.Context(), name)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, columns)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	w.Write([]byte("\n"))
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("request failed")
	} else {
		s.logger.WithError(err).Debug("request rejected")
	}

	body, _ := json.Marshal(errorResponse{Error: err.Error()})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
	w.Write([]byte("\n"))
}
