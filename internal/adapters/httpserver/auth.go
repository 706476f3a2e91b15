package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/phenrril/myshop/internal/apierror"
)

const (
	adminCookie   = "admin_token"
	stateCookie   = "oauth_state"
	tokenIssuer   = "myshop"
	googleUserURL = "https://www.googleapis.com/oauth2/v3/userinfo"

	providerPassword = "password"
	providerGoogle   = "google"
)

// AuthConfig holds the admin credentials. AdminPasswordHash is a bcrypt hash
// as printed by cmd/genhash. OAuth is nil when Google login is off.
type AuthConfig struct {
	AdminUser         string
	AdminPasswordHash string
	Secret            []byte
	AllowedEmails     []string
	TokenTTL          time.Duration
	OAuth             *oauth2.Config
	UserInfoURL       string
}

type adminClaims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

func parseAllowed(emails []string) map[string]struct{} {
	allowed := map[string]struct{}{}
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			allowed[e] = struct{}{}
		}
	}
	return allowed
}

func isSecure(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func (s *Server) setAdminCookie(w http.ResponseWriter, r *http.Request, tok string, maxAge int) {
	http.SetCookie(w, &http.Cookie{Name: adminCookie, Value: tok, Path: "/", MaxAge: maxAge, HttpOnly: true, Secure: isSecure(r), SameSite: http.SameSiteStrictMode})
}

// handleAdminAuth logs in with the configured user and password, answering
// with the token and setting it as a cookie.
func (s *Server) handleAdminAuth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User string `json:"user"`
		Pass string `json:"pass"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apierror.New("invalid JSON"))
			return
		}
	} else {
		req.User = r.FormValue("user")
		req.Pass = r.FormValue("pass")
	}
	user := strings.TrimSpace(req.User)
	if s.auth.AdminUser == "" || s.auth.AdminPasswordHash == "" {
		log.Error().Msg("admin credentials not configured")
		writeJSON(w, http.StatusInternalServerError, apierror.New("admin login is not configured"))
		return
	}
	if !secureCompare(user, s.auth.AdminUser) ||
		bcrypt.CompareHashAndPassword([]byte(s.auth.AdminPasswordHash), []byte(req.Pass)) != nil {
		writeJSON(w, http.StatusUnauthorized, apierror.New("invalid credentials"))
		return
	}
	s.login(w, r, user+"@local", providerPassword)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, email, provider string) {
	tok, exp, err := s.issueAdminToken(email, provider)
	if err != nil {
		log.Error().Err(err).Msg("issue admin token")
		writeJSON(w, http.StatusInternalServerError, apierror.New("could not issue token"))
		return
	}
	s.setAdminCookie(w, r, tok, int(time.Until(exp).Seconds()))
	if provider == providerGoogle {
		http.Redirect(w, r, "/admin/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": tok, "exp": exp.Unix(), "email": email})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	s.setAdminCookie(w, r, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) readAdminToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	c, err := r.Cookie(adminCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	return c.Value
}

func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	if tok := s.readAdminToken(r); tok != "" {
		if _, err := s.verifyAdminToken(tok); err == nil {
			return true
		}
	}
	writeJSON(w, http.StatusUnauthorized, apierror.New("authentication required"))
	return false
}

// protected guards h with requireAdmin.
func (s *Server) protected(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.requireAdmin(w, r) {
			return
		}
		h(w, r)
	}
}

func (s *Server) issueAdminToken(email, provider string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.auth.TokenTTL)
	claims := adminClaims{
		Email:    email,
		Role:     "admin",
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.auth.Secret)
	return tok, exp, err
}

// verifyAdminToken checks signature, expiry and role. Google logins must also
// still be on the allowed list.
func (s *Server) verifyAdminToken(tok string) (string, error) {
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tok, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.auth.Secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Role != "admin" || claims.Email == "" {
		return "", errors.New("claims")
	}
	if claims.Provider == providerGoogle {
		if _, ok := s.allowed[strings.ToLower(claims.Email)]; !ok {
			return "", fmt.Errorf("not allowed: %s", claims.Email)
		}
	}
	return claims.Email, nil
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := 0; i < len(a); i++ {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth.OAuth == nil {
		writeJSON(w, http.StatusNotFound, apierror.New("google login is not configured"))
		return
	}
	state := uuid.New().String()
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: state, Path: "/admin/auth/google", MaxAge: 300, HttpOnly: true, Secure: isSecure(r)})
	http.Redirect(w, r, s.auth.OAuth.AuthCodeURL(state, oauth2.AccessTypeOnline), http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	if s.auth.OAuth == nil {
		writeJSON(w, http.StatusNotFound, apierror.New("google login is not configured"))
		return
	}
	q := r.URL.Query()
	c, _ := r.Cookie(stateCookie)
	if c == nil || c.Value == "" || c.Value != q.Get("state") {
		writeJSON(w, http.StatusBadRequest, apierror.New("invalid oauth state"))
		return
	}
	tok, err := s.auth.OAuth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Error().Err(err).Msg("exchange oauth")
		writeJSON(w, http.StatusBadRequest, apierror.New("oauth exchange failed"))
		return
	}
	userURL := s.auth.UserInfoURL
	if userURL == "" {
		userURL = googleUserURL
	}
	resp, err := s.auth.OAuth.Client(r.Context(), tok).Get(userURL)
	if err != nil {
		log.Error().Err(err).Msg("userinfo")
		writeJSON(w, http.StatusBadGateway, apierror.New("could not read google profile"))
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Msg("userinfo")
		writeJSON(w, http.StatusBadGateway, apierror.New("could not read google profile"))
		return
	}
	var info struct {
		Email string `json:"email"`
	}
	body, _ := io.ReadAll(resp.Body)
	_ = json.Unmarshal(body, &info)
	email := strings.ToLower(strings.TrimSpace(info.Email))
	if _, ok := s.allowed[email]; !ok || email == "" {
		log.Warn().Str("email", email).Msg("admin login refused")
		writeJSON(w, http.StatusForbidden, apierror.New("email not allowed"))
		return
	}
	s.login(w, r, email, providerGoogle)
}
