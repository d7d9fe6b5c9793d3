package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"

	"pipex/pkg/model"
)

// jwtAuth guards the control routes (currently just shutdown) behind a
// bearer token, adapted from the teacher's login/middleware pair but
// without the admin-user/password login flow — the engine has no user
// database, so the secret itself is the credential: anyone who can sign
// a token with jwtSecret is authorized.
type jwtAuth struct {
	jwtSecret []byte
}

func newJWTAuth(secret string) *jwtAuth {
	return &jwtAuth{jwtSecret: []byte(secret)}
}

type loginRequest struct {
	Token string `json:"token" binding:"required"`
}

// loginHandler validates a pre-issued token is well-formed and signed
// with the configured secret, echoing validity back; it exists so a
// caller can confirm their token works before using it on /shutdown.
func (a *jwtAuth) loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}
	token, err := jwt.Parse(req.Token, a.keyFunc)
	if err != nil || !token.Valid {
		respondError(c, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

func (a *jwtAuth) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return a.jwtSecret, nil
}

func (a *jwtAuth) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, http.StatusUnauthorized, "authorization header required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			respondError(c, http.StatusUnauthorized, "invalid authorization header format")
			return
		}
		token, err := jwt.Parse(parts[1], a.keyFunc)
		if err != nil || !token.Valid {
			respondError(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		c.Next()
	}
}

// IssueToken is a helper for operators: mint a bearer token for the
// configured secret, valid for the given duration.
func IssueToken(secret string, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": "pipex",
		"exp": model.Now().Add(ttl).Unix(),
		"iat": model.Now().Unix(),
	})
	return token.SignedString([]byte(secret))
}
