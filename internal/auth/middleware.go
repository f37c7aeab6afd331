package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/push-hr/helpdesk/internal/domain"
	"github.com/push-hr/helpdesk/internal/service"
	"github.com/push-hr/helpdesk/internal/session"
	"github.com/push-hr/helpdesk/pkg/util"
)

const (
	profileKey = "auth_profile"
	sessionKey = "auth_session"
)

// Middleware validates bearer tokens, loads (or provisions) the caller's
// profile and attaches their session store to the request.
type Middleware struct {
	tokens    *TokenManager
	directory *service.DirectoryService
	sessions  *session.Registry
}

// NewMiddleware constructs the middleware.
func NewMiddleware(tokens *TokenManager, directory *service.DirectoryService, sessions *session.Registry) *Middleware {
	return &Middleware{tokens: tokens, directory: directory, sessions: sessions}
}

// Handle enforces authentication for protected routes. Unknown principals
// with a valid token get a default profile provisioned on first contact.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return util.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return util.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return util.NewUnauthorized("invalid token")
	}

	profile, err := m.directory.EnsureProfile(c.UserContext(), claims.Subject, claims.Email)
	if err != nil {
		return util.MapError(err)
	}

	sess, err := m.sessions.Acquire(c.UserContext(), profile)
	if err != nil {
		return util.MapError(err)
	}

	c.Locals(profileKey, profile)
	c.Locals(sessionKey, sess)
	return c.Next()
}

// CurrentProfile returns the authenticated profile attached to the request.
func CurrentProfile(c *fiber.Ctx) *domain.Profile {
	p, _ := c.Locals(profileKey).(*domain.Profile)
	return p
}

// CurrentSession returns the caller's session store.
func CurrentSession(c *fiber.Ctx) *session.Store {
	s, _ := c.Locals(sessionKey).(*session.Store)
	return s
}
