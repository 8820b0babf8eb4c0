package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"abbleitura/internal/app"
	"abbleitura/internal/ratelimit"
	"abbleitura/internal/util"
	"abbleitura/pkg/domain"
	"abbleitura/pkg/store"
)

const defaultCookieName = "abbleitura_session"

// Config wires the HTTP edge.
type Config struct {
	App *app.App

	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	CORSOrigin   string

	LikeLimiter      *ratelimit.FixedWindowLimiter
	SubscribeLimiter *ratelimit.FixedWindowLimiter
	TrustedProxies   *util.TrustedProxies

	Logger *slog.Logger
}

// Server is the JSON API over the application layer. Authentication is a
// session cookie; admin-only routes go through a single wrapper.
type Server struct {
	app     *app.App
	handler http.Handler
	logger  *slog.Logger

	cookieName   string
	cookieSecure bool
	sessionTTL   time.Duration

	likeLimiter      *ratelimit.FixedWindowLimiter
	subscribeLimiter *ratelimit.FixedWindowLimiter
	trustedProxies   *util.TrustedProxies
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	s := &Server{
		app:              cfg.App,
		logger:           cfg.Logger,
		cookieName:       cfg.CookieName,
		cookieSecure:     cfg.CookieSecure,
		sessionTTL:       cfg.SessionTTL,
		likeLimiter:      cfg.LikeLimiter,
		subscribeLimiter: cfg.SubscribeLimiter,
		trustedProxies:   cfg.TrustedProxies,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/auth/callback", s.handleAuthCallback)
	mux.HandleFunc("/api/auth/me", s.handleAuthMe)
	mux.HandleFunc("/api/auth/logout", s.handleAuthLogout)
	mux.HandleFunc("/api/books", s.handleBooks)
	mux.HandleFunc("/api/books/", s.handleBookSubroutes)
	mux.HandleFunc("/api/posts", s.handlePosts)
	mux.HandleFunc("/api/posts/", s.handlePostSubroutes)
	mux.HandleFunc("/api/comments", s.authenticated(s.handleCreateComment))
	mux.HandleFunc("/api/comments/pending", s.adminOnly(s.handlePendingComments))
	mux.HandleFunc("/api/comments/", s.handleCommentSubroutes)
	mux.HandleFunc("/api/favorites", s.authenticated(s.handleFavorites))
	mux.HandleFunc("/api/favorites/", s.authenticated(s.handleRemoveFavorite))
	mux.HandleFunc("/api/downloads", s.authenticated(s.handleCreateDownload))
	mux.HandleFunc("/api/downloads/quota", s.authenticated(s.handleDownloadQuota))
	mux.HandleFunc("/api/newsletter/subscribe", s.handleSubscribe)
	mux.HandleFunc("/api/newsletter/unsubscribe", s.handleUnsubscribe)
	mux.HandleFunc("/api/newsletter/subscribers", s.adminOnly(s.handleSubscribers))

	s.handler = util.WithSecurityHeaders(
		util.WithCORS(cfg.CORSOrigin,
			util.WithRequestID(
				util.WithRequestLog(mux))))
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// --- plumbing ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, app.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrDownloadLimit):
		status = http.StatusTooManyRequests
	case errors.Is(err, app.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return app.ErrInvalidInput
	}
	return nil
}

func (s *Server) sessionUser(r *http.Request) (domain.User, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return domain.User{}, app.ErrUnauthorized
	}
	return s.app.UserFromSession(cookie.Value)
}

type authHandler func(w http.ResponseWriter, r *http.Request, user domain.User)

func (s *Server) authenticated(next authHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.sessionUser(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		next(w, r, user)
	}
}

func (s *Server) adminOnly(next authHandler) http.HandlerFunc {
	return s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != domain.RoleAdmin {
			s.writeError(w, r, app.ErrForbidden)
			return
		}
		next(w, r, user)
	})
}

// optionalUser returns the session user when the cookie is valid and nil
// otherwise. Public reads use it to widen visibility for admins.
func (s *Server) optionalUser(r *http.Request) *domain.User {
	user, err := s.sessionUser(r)
	if err != nil {
		return nil
	}
	return &user
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clientIP(r *http.Request) string {
	return util.ClientIP(r, s.trustedProxies)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}

// --- health ---

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- auth ---

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	user, token, err := s.app.SignIn(r.Context(), body.Token)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, user)
}

// handleAuthMe is public and returns null for anonymous callers so the
// client can render the signed-out state without a 401 round trip.
func (s *Server) handleAuthMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.optionalUser(r))
}

func (s *Server) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	s.clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// --- books ---

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		filter := store.BookFilter{
			Genre:  q.Get("genre"),
			Search: q.Get("search"),
		}
		if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
			filter.Limit = limit
		}
		if offset, err := strconv.Atoi(q.Get("offset")); err == nil {
			filter.Offset = offset
		}
		writeJSON(w, http.StatusOK, s.app.ListBooks(filter))
	case http.MethodPost:
		s.adminOnly(s.handleCreateBook)(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request, _ domain.User) {
	var in app.BookInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	book, err := s.app.CreateBook(in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// handleBookSubroutes dispatches /api/books/{slug}, /api/books/{id} and
// /api/books/{id}/{action}.
func (s *Server) handleBookSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/books/")
	parts := strings.SplitN(rest, "/", 2)
	head := parts[0]
	if head == "" {
		s.writeError(w, r, app.ErrNotFound)
		return
	}

	if len(parts) == 2 {
		id, ok := parseID(head)
		if !ok {
			s.writeError(w, r, app.ErrNotFound)
			return
		}
		switch parts[1] {
		case "like":
			s.handleLikeBook(w, r, id)
		case "file":
			s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
				s.handleUploadBookFile(w, r, id)
			})(w, r)
		case "comments":
			s.handleBookComments(w, r, id)
		default:
			s.writeError(w, r, app.ErrNotFound)
		}
		return
	}

	if id, ok := parseID(head); ok && r.Method != http.MethodGet {
		switch r.Method {
		case http.MethodPatch:
			s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
				s.handleUpdateBook(w, r, id)
			})(w, r)
		case http.MethodDelete:
			s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
				if err := s.app.DeleteBook(id); err != nil {
					s.writeError(w, r, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	book, err := s.app.GetBook(head, s.optionalUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request, id int64) {
	var update store.BookUpdate
	if err := decodeBody(w, r, &update); err != nil {
		s.writeError(w, r, err)
		return
	}
	book, err := s.app.UpdateBook(id, update)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

// handleLikeBook is anonymous but rate limited per client IP.
func (s *Server) handleLikeBook(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.likeLimiter != nil && !s.likeLimiter.Allow("like:"+s.clientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many likes, slow down"})
		return
	}
	book, err := s.app.LikeBook(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"likes": book.Likes})
}

const maxUploadBytes = 100 << 20

func (s *Server) handleUploadBookFile(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	format := r.URL.Query().Get("format")
	body := http.MaxBytesReader(w, r.Body, maxUploadBytes)
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.app.UploadBookFile(r.Context(), id, format, body, r.ContentLength, contentType); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBookComments(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	comments, err := s.app.ListBookComments(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// --- posts ---

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		writeJSON(w, http.StatusOK, s.app.ListPosts(limit, offset))
	case http.MethodPost:
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, user domain.User) {
			var in app.PostInput
			if err := decodeBody(w, r, &in); err != nil {
				s.writeError(w, r, err)
				return
			}
			post, err := s.app.CreatePost(user, in)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, post)
		})(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handlePostSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/posts/")
	parts := strings.SplitN(rest, "/", 2)
	head := parts[0]
	if head == "" {
		s.writeError(w, r, app.ErrNotFound)
		return
	}

	if len(parts) == 2 {
		id, ok := parseID(head)
		if !ok || parts[1] != "view" {
			s.writeError(w, r, app.ErrNotFound)
			return
		}
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		if err := s.app.RecordPostView(id); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if id, ok := parseID(head); ok && r.Method != http.MethodGet {
		switch r.Method {
		case http.MethodPatch:
			s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
				var update store.PostUpdate
				if err := decodeBody(w, r, &update); err != nil {
					s.writeError(w, r, err)
					return
				}
				post, err := s.app.UpdatePost(id, update)
				if err != nil {
					s.writeError(w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, post)
			})(w, r)
		case http.MethodDelete:
			s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
				if err := s.app.DeletePost(id); err != nil {
					s.writeError(w, r, err)
					return
				}
				w.WriteHeader(http.StatusNoContent)
			})(w, r)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	post, err := s.app.GetPost(head, s.optionalUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// --- comments ---

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var in app.CommentInput
	if err := decodeBody(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	comment, err := s.app.CreateComment(user, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handlePendingComments(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.PendingComments())
}

func (s *Server) handleCommentSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/comments/")
	parts := strings.SplitN(rest, "/", 2)
	id, ok := parseID(parts[0])
	if !ok || len(parts) != 2 {
		s.writeError(w, r, app.ErrNotFound)
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	switch parts[1] {
	case "approve":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			comment, err := s.app.ApproveComment(id)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, comment)
		})(w, r)
	case "reject":
		s.adminOnly(func(w http.ResponseWriter, r *http.Request, _ domain.User) {
			comment, err := s.app.RejectComment(id)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, comment)
		})(w, r)
	case "translate":
		s.authenticated(func(w http.ResponseWriter, r *http.Request, user domain.User) {
			var body struct {
				TargetLanguage string `json:"targetLanguage"`
			}
			if err := decodeBody(w, r, &body); err != nil {
				s.writeError(w, r, err)
				return
			}
			comment, err := s.app.TranslateComment(r.Context(), user, id, body.TargetLanguage)
			if err != nil {
				s.writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, comment)
		})(w, r)
	default:
		s.writeError(w, r, app.ErrNotFound)
	}
}

// --- favorites ---

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.app.ListFavorites(user))
	case http.MethodPost:
		var body struct {
			BookID int64 `json:"bookId"`
		}
		if err := decodeBody(w, r, &body); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.app.AddFavorite(user, body.BookID); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	id, ok := parseID(strings.TrimPrefix(r.URL.Path, "/api/favorites/"))
	if !ok {
		s.writeError(w, r, app.ErrNotFound)
		return
	}
	if err := s.app.RemoveFavorite(user, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- downloads ---

func (s *Server) handleCreateDownload(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		BookID int64  `json:"bookId"`
		Format string `json:"format"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	download, err := s.app.CreateDownload(r.Context(), user, app.DownloadRequest{
		BookID:    body.BookID,
		Format:    body.Format,
		IPAddress: s.clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, download)
}

func (s *Server) handleDownloadQuota(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	bookID, ok := parseID(r.URL.Query().Get("bookId"))
	if !ok {
		s.writeError(w, r, app.ErrInvalidInput)
		return
	}
	quota, err := s.app.GetDownloadQuota(user, bookID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quota)
}

// --- newsletter ---

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.subscribeLimiter != nil && !s.subscribeLimiter.Allow("subscribe:"+s.clientIP(r)) {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests, slow down"})
		return
	}
	var body struct {
		Email    string `json:"email"`
		Language string `json:"language"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	sub, err := s.app.Subscribe(r.Context(), body.Email, body.Language)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeBody(w, r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.app.Unsubscribe(body.Email); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubscribers(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, s.app.Subscribers(r.URL.Query().Get("language")))
}
