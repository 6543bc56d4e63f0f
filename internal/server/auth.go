package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// ─── JWT control-plane auth ───────────────────────────────────────────────────

// actorKey is where JWTMiddleware stores the authenticated username. Every
// mutating handler passes it to the core as the acting user.
const actorKey = "username"

// Claims is the payload embedded in every JWT issued by /api/login.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type authenticator struct {
	secret     []byte
	ttl        time.Duration
	agentToken string
	adminUser  string
	adminHash  []byte
	now        func() time.Time
}

func newAuthenticator(secret string, ttl time.Duration, agentToken, adminUser, adminPass string) (*authenticator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPass), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing admin password")
	}
	return &authenticator{
		secret:     []byte(secret),
		ttl:        ttl,
		agentToken: agentToken,
		adminUser:  adminUser,
		adminHash:  hash,
		now:        time.Now,
	}, nil
}

// checkCredentials compares against the bcrypt hash taken at startup so the
// plain admin password is not kept around.
func (a *authenticator) checkCredentials(user, pass string) bool {
	if subtle.ConstantTimeCompare([]byte(user), []byte(a.adminUser)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.adminHash, []byte(pass)) == nil
}

// GenerateJWT creates a signed HS256 JWT valid for the configured TTL.
func (a *authenticator) GenerateJWT(username string) (string, error) {
	now := a.now()
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "patchbay",
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *authenticator) parseJWT(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithTimeFunc(a.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// JWTMiddleware validates "Authorization: Bearer <jwt>" on the control plane
// and stores the username in the Gin context.
func (a *authenticator) JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{
				Message: "missing or malformed Authorization header, expected: Bearer <token>",
			})
			return
		}

		claims, err := a.parseJWT(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Message: "invalid or expired token"})
			return
		}

		c.Set(actorKey, claims.Username)
		c.Next()
	}
}

// ─── Bearer-token data-plane auth ────────────────────────────────────────────

// AgentTokenMiddleware checks the pre-shared key the SNMP worker sends.
func (a *authenticator) AgentTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearer(c)
		if !ok || subtle.ConstantTimeCompare([]byte(raw), []byte(a.agentToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Message: "invalid or missing agent token"})
			return
		}
		c.Set(actorKey, "snmp-worker")
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func actor(c *gin.Context) string {
	return c.GetString(actorKey)
}
