package services

import (
	"crypto/subtle"
	"strings"
	"time"

	"hazacheck/internal/config"
	"hazacheck/internal/metrics"
	"hazacheck/internal/util"

	"go.uber.org/zap"
)

// AdminAuth checks admin bearer tokens. A token is accepted when it equals the
// configured admin secret or is a valid session token signed with SECRET_KEY.
type AdminAuth struct {
	adminToken string
	secretKey  string
	ttl        time.Duration
	log        *zap.Logger
	now        func() time.Time
}

// NewAdminAuth creates a new admin authenticator
func NewAdminAuth(cfg config.AuthConfig, log *zap.Logger) *AdminAuth {
	return &AdminAuth{
		adminToken: cfg.AdminToken,
		secretKey:  cfg.SecretKey,
		ttl:        time.Duration(cfg.TokenExpiryMinutes) * time.Minute,
		log:        log.Named("auth"),
		now:        time.Now,
	}
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// Authorize validates the Authorization header of an admin request
func (a *AdminAuth) Authorize(header string) error {
	token := BearerToken(header)
	if token == "" {
		metrics.RecordAuthAttempt(false)
		return ErrUnauthorized
	}
	if a.matchesAdminToken(token) {
		metrics.RecordAuthAttempt(true)
		return nil
	}
	if a.secretKey != "" {
		if _, err := util.ValidateAdminToken(token, a.secretKey); err == nil {
			metrics.RecordAuthAttempt(true)
			return nil
		}
	}
	metrics.RecordAuthAttempt(false)
	a.log.Info("admin token rejected")
	return ErrUnauthorized
}

func (a *AdminAuth) matchesAdminToken(token string) bool {
	if a.adminToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) == 1
}

// Session is an issued admin session token
type Session struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// SessionsEnabled reports whether IssueSession can succeed
func (a *AdminAuth) SessionsEnabled() bool {
	return a.secretKey != ""
}

// IssueSession exchanges the admin secret for a short-lived signed token
func (a *AdminAuth) IssueSession(adminToken string) (*Session, error) {
	if !a.SessionsEnabled() {
		return nil, ErrSessionsDisabled
	}
	if !a.matchesAdminToken(strings.TrimSpace(adminToken)) {
		metrics.RecordAuthAttempt(false)
		a.log.Info("session request rejected")
		return nil, ErrUnauthorized
	}

	token, err := util.GenerateAdminToken(a.secretKey, a.ttl, a.now())
	if err != nil {
		return nil, internalError(msgAdminFailed, err)
	}
	metrics.RecordAuthAttempt(true)
	a.log.Info("admin session issued", zap.Duration("ttl", a.ttl))

	return &Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(a.ttl.Seconds()),
	}, nil
}
