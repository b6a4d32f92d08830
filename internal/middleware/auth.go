// Package middleware provides authentication, session, logging, tracing and rate limiting middleware.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionCookie holds the signed session token for browser clients.
const SessionCookie = "curr_user"

// AccessUnauthorized is flashed when an anonymous visitor hits a members-only page.
const AccessUnauthorized = "Access unauthorized."

const (
	tokenIssuer   = "warbler-api"
	tokenAudience = "warbler-client"
)

// ErrInvalidToken is returned for tokens that fail signature, claim or expiry checks.
var ErrInvalidToken = errors.New("invalid or expired token")

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	UserID    uint
	Username  string
	JTI       string
	ExpiresAt time.Time
}

type tokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sessions issues, verifies and revokes JWT session tokens.
// Revocations live in Redis under blacklist:<jti> until the token would expire anyway.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	rdb    *redis.Client
	now    func() time.Time
}

// NewSessions returns a session manager. rdb may be nil, in which case logout only clears the cookie.
func NewSessions(secret string, ttl time.Duration, rdb *redis.Client) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, rdb: rdb, now: time.Now}
}

// Issue signs a new token for the user.
func (s *Sessions) Issue(userID uint, username string) (string, *SessionClaims, error) {
	if len(s.secret) == 0 {
		return "", nil, fmt.Errorf("JWT secret not configured")
	}

	now := s.now()
	exp := now.Add(s.ttl)
	jti := uuid.NewString()
	claims := tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        jti,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, &SessionClaims{UserID: userID, Username: username, JTI: jti, ExpiresAt: exp}, nil
}

// Parse verifies a token and returns its claims.
func (s *Sessions) Parse(tokenString string) (*SessionClaims, error) {
	var claims tokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, ErrInvalidToken
	}

	out := &SessionClaims{UserID: uint(userID), Username: claims.Username, JTI: claims.ID}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

// Revoke blacklists the token id for the rest of its lifetime.
func (s *Sessions) Revoke(ctx context.Context, claims *SessionClaims) error {
	if s.rdb == nil || claims == nil || claims.JTI == "" {
		return nil
	}
	remaining := claims.ExpiresAt.Sub(s.now())
	if remaining <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, "blacklist:"+claims.JTI, "1", remaining).Err()
}

// IsRevoked reports whether the token id was blacklisted by Revoke.
func (s *Sessions) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if s.rdb == nil || jti == "" {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, "blacklist:"+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetCookie stores the token on the response for browser clients.
func (s *Sessions) SetCookie(c *fiber.Ctx, token string, claims *SessionClaims) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearCookie removes the session cookie.
func (s *Sessions) ClearCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// CurrentUser resolves the session, if any, into c.Locals("userID") and
// c.Locals("session"). It never rejects a request.
func (s *Sessions) CurrentUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" {
			tokenString = c.Cookies(SessionCookie)
		}
		if tokenString == "" {
			return c.Next()
		}

		claims, err := s.Parse(tokenString)
		if err != nil {
			return c.Next()
		}

		revoked, err := s.IsRevoked(c.UserContext(), claims.JTI)
		if err != nil {
			Logger.WarnContext(c.UserContext(), "session revocation lookup failed", "error", err)
			return c.Next()
		}
		if revoked {
			return c.Next()
		}

		c.Locals("userID", claims.UserID)
		c.Locals("session", claims)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, claims.UserID))
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// AuthRequired rejects requests without a resolved session with 401. Use after CurrentUser.
func AuthRequired(c *fiber.Ctx) error {
	if _, ok := c.Locals("userID").(uint); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required",
			"code":  "UNAUTHORIZED",
		})
	}
	return c.Next()
}

// LoginRequired redirects anonymous visitors home with an "Access unauthorized." flash.
// Use after CurrentUser on page-style routes.
func LoginRequired(c *fiber.Ctx) error {
	if _, ok := c.Locals("userID").(uint); !ok {
		Flash(c, "danger", AccessUnauthorized)
		return c.Redirect("/", fiber.StatusFound)
	}
	return c.Next()
}

// SessionFrom returns the verified session for the request, if any.
func SessionFrom(c *fiber.Ctx) (*SessionClaims, bool) {
	claims, ok := c.Locals("session").(*SessionClaims)
	return claims, ok
}
