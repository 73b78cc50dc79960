// Package auth manages cookie sessions and carries the signed-in user
// through the request context.
//
// Nothing here is global: the SessionManager is built once in bootstrap and
// passed to the features that need it, and the current user lives only in
// the request's context.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
	userName  = "user_name"
	userEmail = "user_email"
	userRole  = "user_role"
	signedAt  = "signed_in_at"
)

// RestrictedPath is where signed-in accounts that may not write are sent.
const RestrictedPath = "/profile?restricted=1"

// SessionUser is the authenticated principal for one request.
type SessionUser struct {
	ID       string
	Name     string
	Email    string
	Role     string // admin | student
	Status   string // Active | Pending | Banned
	IsActive bool
}

// CanWrite reports whether the account may perform writes other than
// editing its own profile.
func (u *SessionUser) CanWrite() bool {
	return u != nil && u.Status == "Active" && u.IsActive
}

// IsAdmin reports whether the user holds the admin role.
func (u *SessionUser) IsAdmin() bool {
	return u != nil && strings.EqualFold(u.Role, "admin")
}

// UserFetcher loads the current state of a user on every request so that
// role and status changes apply immediately. It returns nil when the user
// no longer exists.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager wraps a gorilla cookie store.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	log     *zap.Logger
	fetcher UserFetcher
}

// NewSessionManager creates a SessionManager. secure marks cookies Secure
// (production over HTTPS).
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide at least 32 random characters")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "studyhub-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	logger.Info("session store initialized",
		zap.String("name", name),
		zap.Bool("secure", secure),
		zap.Duration("max_age", maxAge))

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// Store exposes the underlying cookie store.
func (sm *SessionManager) Store() *sessions.CookieStore { return sm.store }

// Name returns the session cookie name.
func (sm *SessionManager) Name() string { return sm.name }

// SetUserFetcher installs the fetcher used by LoadSessionUser.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) { sm.fetcher = f }

// GetSession returns the request's session. A cookie that fails to decode
// (rotated key, tampering) yields a fresh empty session rather than an error.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		var cerr securecookie.Error
		if errors.As(err, &cerr) && cerr.IsDecode() {
			sm.log.Debug("discarding undecodable session cookie", zap.Error(err))
			return sess, nil
		}
		return sess, err
	}
	return sess, nil
}

// SignIn records u as the authenticated user of the session.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u SessionUser) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		return err
	}
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values[userName] = u.Name
	sess.Values[userEmail] = u.Email
	sess.Values[userRole] = u.Role
	sess.Values[signedAt] = time.Now().UTC().Unix()
	return sess.Save(r, w)
}

// SignOut clears the session cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.GetSession(r)
	if err != nil {
		return err
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionUser injects the signed-in user into the request context.
// With a UserFetcher installed the user is reloaded from the database; a
// user that no longer exists is treated as signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.GetSession(r)
		if err != nil {
			sm.log.Warn("session load failed", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
			next.ServeHTTP(w, r)
			return
		}

		id := getString(sess, userIDKey)
		var u *SessionUser
		if sm.fetcher != nil {
			u = sm.fetcher.FetchUser(r.Context(), id)
		} else {
			u = &SessionUser{
				ID:    id,
				Name:  getString(sess, userName),
				Email: getString(sess, userEmail),
				Role:  getString(sess, userRole),
			}
		}
		if u != nil {
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context.
// If not signed in:
//   - HTMX: sends HX-Redirect to /login?return=...
//   - HTML: 303 redirect to /login?return=...
//   - API:  401 Unauthorized.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		denyUnauthenticated(w, r)
	})
}

// RequireRole ensures the signed-in user has one of the allowed roles.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				denyUnauthenticated(w, r)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				deny(w, r, "/forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireActive ensures the signed-in account may write. Pending, banned,
// and deactivated accounts are sent to their profile page (HTML) or get
// 403 (API).
func (sm *SessionManager) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			denyUnauthenticated(w, r)
			return
		}
		if !u.CanWrite() {
			deny(w, r, RestrictedPath, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CurrentUser returns the user and a "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context, as LoadSessionUser would.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func denyUnauthenticated(w http.ResponseWriter, r *http.Request) {
	ret := url.QueryEscape(r.URL.RequestURI())
	deny(w, r, "/login?return="+ret, http.StatusUnauthorized)
}

// deny sends HTMX and HTML callers to dest and API callers a bare status.
func deny(w http.ResponseWriter, r *http.Request, dest string, status int) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", dest)
		w.WriteHeader(status)
		return
	}
	if wantsHTML(r) {
		http.Redirect(w, r, dest, http.StatusSeeOther)
		return
	}
	http.Error(w, strings.ToLower(http.StatusText(status)), status)
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
