package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"bookshelf/internal/ratelimit"
	"bookshelf/internal/util"
	"bookshelf/pkg/auth"
	"bookshelf/pkg/domain"
	"bookshelf/pkg/repo"
	"bookshelf/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Repo          *repo.Repository
	Auth          *repo.AuthRepository
	Sessions      store.SessionStore
	LoginLimiter  *ratelimit.FixedWindowLimiter
	SignupLimiter *ratelimit.FixedWindowLimiter
}

// Server exposes the catalog over HTTP.
type Server struct {
	repo          *repo.Repository
	auth          *repo.AuthRepository
	sessions      store.SessionStore
	loginLimiter  *ratelimit.FixedWindowLimiter
	signupLimiter *ratelimit.FixedWindowLimiter
	mux           *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		repo:          cfg.Repo,
		auth:          cfg.Auth,
		sessions:      cfg.Sessions,
		loginLimiter:  cfg.LoginLimiter,
		signupLimiter: cfg.SignupLimiter,
		mux:           http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.Handle("/auth/signup", s.rateLimited(s.signupLimiter, s.handleSignup))
	s.mux.Handle("/auth/login", s.rateLimited(s.loginLimiter, s.handleLogin))
	s.mux.HandleFunc("/auth/logout", s.handleLogout)
	s.mux.Handle("/me", s.withUser(s.handleMe))

	// catalog
	s.mux.Handle("/books", s.withUser(s.handleBooks))
	s.mux.Handle("/books/", s.withUser(s.handleBookByID))

	// shelves
	s.mux.Handle("/lists", s.withUser(s.handleLists))
	s.mux.Handle("/lists/", s.withUser(s.handleListByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, ok, err := s.sessions.GetUserIDByToken(token)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		user, found, err := s.auth.GetUserByID(r.Context(), userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !found {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) rateLimited(limiter *ratelimit.FixedWindowLimiter, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if limiter != nil && !limiter.Allow(util.ClientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	})
}

// auth handlers

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email and password are required")
		return
	}
	user, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	token, err := s.sessions.NewSession(user.ID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	user, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	token, err := s.sessions.NewSession(user.ID)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := s.sessions.DeleteSession(token); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// catalog handlers

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	books, err := s.repo.ListBooks(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": books,
		"count": len(books),
	})
}

// /books/{id} or /books/{id}/reviews
func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/books/")
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if len(parts) == 2 {
		if parts[1] != "reviews" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.handleSaveReview(w, r, user, id)
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	book, err := s.repo.GetBookByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookResponse{Book: book, AverageRating: book.AverageRating()})
}

func (s *Server) handleSaveReview(w http.ResponseWriter, r *http.Request, user domain.User, bookID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req reviewRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	review := domain.Review{
		BookID:   bookID,
		UserID:   user.ID,
		Username: user.Username,
		Rating:   req.Rating,
		Text:     strings.TrimSpace(req.Text),
	}
	if err := s.repo.SaveReview(r.Context(), review); err != nil {
		writeDomainError(w, err)
		return
	}
	book, err := s.repo.GetBookByID(r.Context(), bookID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bookResponse{Book: book, AverageRating: book.AverageRating()})
}

// shelf handlers

func (s *Server) handleLists(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		lists, err := s.repo.GetUserBookLists(r.Context(), user.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"items": lists,
			"count": len(lists),
		})
	case http.MethodPost:
		var req createListRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		list, err := s.repo.CreateBookList(r.Context(), user.ID, req.Name)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, list)
	default:
		methodNotAllowed(w)
	}
}

// /lists/{id} or /lists/{id}/books/{bookID}
func (s *Server) handleListByID(w http.ResponseWriter, r *http.Request, user domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/lists/")
	parts := strings.Split(path, "/")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.handleDeleteList(w, r, user, parts[0])
	case 3:
		if parts[0] == "" || parts[1] != "books" || parts[2] == "" {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.handleListMembership(w, r, user, parts[0], parts[2])
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleDeleteList(w http.ResponseWriter, r *http.Request, user domain.User, listID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if err := s.repo.DeleteBookList(r.Context(), listID, user.ID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleListMembership(w http.ResponseWriter, r *http.Request, user domain.User, listID, bookID string) {
	// membership changes require list ownership, same rule as deletion
	lists, err := s.repo.GetUserBookLists(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	owned := false
	for _, l := range lists {
		if l.ID == listID {
			owned = true
			break
		}
	}
	if !owned {
		writeError(w, http.StatusNotFound, "list not found")
		return
	}
	switch r.Method {
	case http.MethodPut:
		err = s.repo.AddBookToList(r.Context(), listID, bookID)
	case http.MethodDelete:
		err = s.repo.RemoveBookFromList(r.Context(), listID, bookID)
	default:
		methodNotAllowed(w)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeDomainError maps repository sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repo.ErrBookNotFound), errors.Is(err, repo.ErrListNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repo.ErrNotListOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repo.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, repo.ErrDuplicateListName),
		errors.Is(err, repo.ErrEmailTaken),
		errors.Is(err, repo.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, repo.ErrListNameRequired), errors.Is(err, auth.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type createListRequest struct {
	Name string `json:"name"`
}

type reviewRequest struct {
	Rating int    `json:"rating"`
	Text   string `json:"text"`
}

type bookResponse struct {
	domain.Book
	AverageRating float64 `json:"averageRating"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
