// Package server exposes the message store over HTTP as a small JSON API.
// The routing layer stays thin: every operation maps one-to-one onto a
// store call, and all state lives in the oodle files themselves.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"oodle/internal/auth"
	"oodle/internal/oodle"
	"oodle/internal/store"
)

const sessionCookie = "sid"

// Server wires the store, credentials, and session registry behind a router.
type Server struct {
	store    *store.Store
	creds    *auth.Credentials
	sessions *auth.Sessions
	log      *slog.Logger
}

// New creates a server. A nil creds disables authentication entirely
// (local single-author mode); login/logout routes are then not registered.
func New(st *store.Store, creds *auth.Credentials, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	return &Server{
		store:    st,
		creds:    creds,
		sessions: auth.NewSessions(0),
		log:      log,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			metrics := httpsnoop.CaptureMetrics(handler, writer, request)
			s.log.Info("handled",
				"method", request.Method,
				"url", request.URL,
				"duration", metrics.Duration,
				"status", metrics.Code)
		})
	})

	if s.creds != nil {
		router.Methods(http.MethodPost).Path("/login").HandlerFunc(s.handleLogin)
		router.Methods(http.MethodPost).Path("/logout").HandlerFunc(s.handleLogout)
	}

	api := router.PathPrefix("/oodles").Subrouter()
	api.Use(s.requireSession)
	api.Methods(http.MethodPost).Path("/{file}/messages").HandlerFunc(s.handleCreate)
	api.Methods(http.MethodGet).Path("/{file}/messages/{id:[0-9]+}").HandlerFunc(s.handleGet)
	api.Methods(http.MethodPut).Path("/{file}/messages/{id:[0-9]+}").HandlerFunc(s.handleUpdate)

	return router
}

// messageJSON is the wire shape of one message.
type messageJSON struct {
	ID       int    `json:"id"`
	Created  string `json:"created"`
	Modified string `json:"modified"`
	Content  string `json:"content"`
}

func toJSON(msg oodle.Message) messageJSON {
	return messageJSON{
		ID:       msg.ID,
		Created:  msg.Created.Format(time.RFC3339),
		Modified: msg.Modified.Format(time.RFC3339),
		Content:  msg.Content,
	}
}

type contentRequest struct {
	Content string `json:"content"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(writer http.ResponseWriter, request *http.Request) {
	var body loginRequest

	decodeErr := json.NewDecoder(request.Body).Decode(&body)
	if decodeErr != nil {
		s.writeError(writer, http.StatusBadRequest, "invalid request body")

		return
	}

	if !s.creds.Verify(body.Username, body.Password) {
		s.writeError(writer, http.StatusUnauthorized, "invalid credentials")

		return
	}

	session := s.sessions.Create(body.Username)

	http.SetCookie(writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.Expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	s.writeJSON(writer, http.StatusOK, map[string]string{"username": session.Username})
}

func (s *Server) handleLogout(writer http.ResponseWriter, request *http.Request) {
	cookie, cookieErr := request.Cookie(sessionCookie)
	if cookieErr == nil {
		s.sessions.Delete(cookie.Value)
	}

	http.SetCookie(writer, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	writer.WriteHeader(http.StatusNoContent)
}

// requireSession rejects requests without a live session when
// authentication is enabled.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if s.creds == nil {
			next.ServeHTTP(writer, request)

			return
		}

		cookie, cookieErr := request.Cookie(sessionCookie)
		if cookieErr != nil {
			s.writeError(writer, http.StatusUnauthorized, "login required")

			return
		}

		_, ok := s.sessions.Lookup(cookie.Value)
		if !ok {
			s.writeError(writer, http.StatusUnauthorized, "login required")

			return
		}

		next.ServeHTTP(writer, request)
	})
}

func (s *Server) handleCreate(writer http.ResponseWriter, request *http.Request) {
	vars := mux.Vars(request)

	var body contentRequest

	decodeErr := json.NewDecoder(request.Body).Decode(&body)
	if decodeErr != nil {
		s.writeError(writer, http.StatusBadRequest, "invalid request body")

		return
	}

	msg, err := s.store.Create(request.Context(), vars["file"], body.Content)
	if err != nil {
		s.writeStoreError(writer, err)

		return
	}

	s.writeJSON(writer, http.StatusCreated, toJSON(msg))
}

func (s *Server) handleGet(writer http.ResponseWriter, request *http.Request) {
	vars := mux.Vars(request)

	id, convErr := strconv.Atoi(vars["id"])
	if convErr != nil {
		s.writeError(writer, http.StatusBadRequest, "invalid message id")

		return
	}

	msg, err := s.store.Get(request.Context(), vars["file"], id)
	if err != nil {
		s.writeStoreError(writer, err)

		return
	}

	s.writeJSON(writer, http.StatusOK, toJSON(msg))
}

func (s *Server) handleUpdate(writer http.ResponseWriter, request *http.Request) {
	vars := mux.Vars(request)

	id, convErr := strconv.Atoi(vars["id"])
	if convErr != nil {
		s.writeError(writer, http.StatusBadRequest, "invalid message id")

		return
	}

	var body contentRequest

	decodeErr := json.NewDecoder(request.Body).Decode(&body)
	if decodeErr != nil {
		s.writeError(writer, http.StatusBadRequest, "invalid request body")

		return
	}

	msg, err := s.store.Update(request.Context(), vars["file"], id, body.Content)
	if err != nil {
		s.writeStoreError(writer, err)

		return
	}

	s.writeJSON(writer, http.StatusOK, toJSON(msg))
}

// writeStoreError maps the store's error taxonomy onto HTTP statuses.
func (s *Server) writeStoreError(writer http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		s.writeError(writer, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrInvalidName):
		s.writeError(writer, http.StatusBadRequest, err.Error())
	case errors.Is(err, oodle.ErrFormat):
		s.writeError(writer, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrLockTimeout):
		s.writeError(writer, http.StatusServiceUnavailable, err.Error())
	default:
		s.log.Error("store operation failed", "err", err)
		s.writeError(writer, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)

	encodeErr := json.NewEncoder(writer).Encode(value)
	if encodeErr != nil {
		s.log.Error("failed to write response", "err", encodeErr)
	}
}

func (s *Server) writeError(writer http.ResponseWriter, status int, msg string) {
	s.writeJSON(writer, status, map[string]string{"error": msg})
}
