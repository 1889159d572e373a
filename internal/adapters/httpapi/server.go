package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kvetinski/phonebook/internal/domain"
	contactsvc "github.com/kvetinski/phonebook/internal/service/contact"
	"github.com/kvetinski/phonebook/internal/telemetry"
)

const version = "1.0.0"

type Options struct {
	// Prefix mounts the API, "/api" when empty.
	Prefix  string
	Backend string
	Metrics *telemetry.Metrics
}

type Server struct {
	svc     *contactsvc.Service
	logger  *slog.Logger
	prefix  string
	backend string
	metrics *telemetry.Metrics
}

func NewServer(svc *contactsvc.Service, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	prefix := "/" + strings.Trim(opts.Prefix, "/")
	if prefix == "/" {
		prefix = "/api"
	}

	return &Server{
		svc:     svc,
		logger:  logger,
		prefix:  prefix,
		backend: opts.Backend,
		metrics: opts.Metrics,
	}
}

// Handler builds the router with its middleware chain.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.observe)

	r.HandleFunc(s.prefix, s.index).Methods(http.MethodGet)

	api := r.PathPrefix(s.prefix).Subrouter()
	api.HandleFunc("/contacts", s.listContacts).Methods(http.MethodGet)
	api.HandleFunc("/contacts", s.createContact).Methods(http.MethodPost)
	api.HandleFunc("/contacts", s.deleteAllContacts).Methods(http.MethodDelete)
	api.HandleFunc("/contacts/{id}", s.getContact).Methods(http.MethodGet)
	api.HandleFunc("/contacts/{id}", s.updateContact).Methods(http.MethodPut)
	api.HandleFunc("/contacts/{id}", s.deleteContact).Methods(http.MethodDelete)

	r.HandleFunc("/health", s.health).Methods(http.MethodGet)
	r.Handle("/", http.RedirectHandler(s.prefix, http.StatusFound)).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(s.notFound)

	var h http.Handler = r
	h = recoverer(s.logger)(h)
	h = requestID(h)
	h = cors(h)

	return otelhttp.NewHandler(h, "phonebook.http")
}

func (s *Server) listContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.svc.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) getContact(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

func (s *Server) createContact(w http.ResponseWriter, r *http.Request) {
	var in domain.ContactInput
	if err := decodeBody(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.svc.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) updateContact(w http.ResponseWriter, r *http.Request) {
	var patch domain.ContactPatch
	if err := decodeBody(r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	c, err := s.svc.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, c)
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
}

func (s *Server) deleteContact(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{Success: true, Message: "contact deleted", ID: res.ID})
}

type deleteAllResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (s *Server) deleteAllContacts(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.DeleteAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, deleteAllResponse{
		Success: true,
		Message: fmt.Sprintf("deleted %d contacts", n),
		Count:   n,
	})
}

type healthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Backend       string    `json:"backend,omitempty"`
	ContactsCount int       `json:"contactsCount"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "OK", Timestamp: time.Now().UTC(), Backend: s.backend}

	n, err := s.svc.Count(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		resp.Status = "UNAVAILABLE"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.ContactsCount = n

	writeJSON(w, http.StatusOK, resp)
}

type endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

func (s *Server) index(w http.ResponseWriter, _ *http.Request) {
	contacts := s.prefix + "/contacts"
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Phonebook REST API",
		"version": version,
		"backend": s.backend,
		"endpoints": []endpoint{
			{http.MethodGet, contacts, "list all contacts"},
			{http.MethodGet, contacts + "/{id}", "get a contact by id"},
			{http.MethodPost, contacts, "create a contact"},
			{http.MethodPut, contacts + "/{id}", "update a contact"},
			{http.MethodDelete, contacts + "/{id}", "delete a contact"},
			{http.MethodDelete, contacts, "delete all contacts"},
		},
		"exampleRequest": map[string]any{
			"method": http.MethodPost,
			"url":    contacts,
			"body": domain.ContactInput{
				Username:  "Jane Doe",
				Email:     "jane@example.com",
				Telephone: domain.TelephoneInput{Mobile: "+15551234567", Home: "+15557654321"},
			},
		},
	})
}

func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":           "route not found",
		"availableRoutes": []string{s.prefix, s.prefix + "/contacts", "/health"},
	})
}

var errMalformedBody = errors.New("malformed JSON body")

// decodeBody treats an empty body as an empty payload.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}

	return nil
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationErr.Error(), Field: validationErr.Field})
	case errors.Is(err, errMalformedBody):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrContactNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "contact not found"})
	default:
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", RequestIDFrom(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
