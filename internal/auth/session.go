package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rajasatyajit/TravelSafe/config"
	"github.com/rajasatyajit/TravelSafe/internal/models"
)

const sessionIssuer = "travelsafe"

type sessionClaims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionManager issues and reads the signed session cookie.
type SessionManager struct {
	secret []byte
	cookie string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionManager(cfg config.OAuthConfig) *SessionManager {
	name := cfg.SessionCookie
	if name == "" {
		name = "travelsafe_session"
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{
		secret: []byte(cfg.SessionSecret),
		cookie: name,
		ttl:    ttl,
		secure: cfg.SecureCookies,
		now:    time.Now,
	}
}

// CookieName returns the session cookie name.
func (m *SessionManager) CookieName() string { return m.cookie }

// Issue signs an HS256 token for u.
func (m *SessionManager) Issue(u models.User) (string, error) {
	now := m.now()
	claims := sessionClaims{
		Name:  u.DisplayName,
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse validates token and returns the session it carries.
func (m *SessionManager) Parse(token string) (*Session, error) {
	var claims sessionClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	parsed, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !parsed.Valid || claims.Subject == "" || claims.Issuer != sessionIssuer {
		return nil, ErrNoSession
	}
	// jwt/v4 validates exp against the wall clock; check our clock as well
	if claims.ExpiresAt != nil && !m.now().Before(claims.ExpiresAt.Time) {
		return nil, fmt.Errorf("%w: expired", ErrNoSession)
	}
	return &Session{UserID: claims.Subject, Name: claims.Name, Email: claims.Email}, nil
}

// FromRequest reads the session cookie.
func (m *SessionManager) FromRequest(r *http.Request) (*Session, error) {
	c, err := r.Cookie(m.cookie)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	return m.Parse(c.Value)
}

// SetCookie writes a fresh session cookie for u.
func (m *SessionManager) SetCookie(w http.ResponseWriter, u models.User) error {
	token, err := m.Issue(u)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
	return nil
}

// ClearCookie expires the session cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
