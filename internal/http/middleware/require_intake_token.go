package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/barswebadmin/BigAppleRecSports-sub003/internal/shared/apperr"
)

const HeaderIntakeToken = "X-Intake-Token"

// RequireIntakeToken gates the form-intake endpoint behind the shared
// secret the external form sends. The config carries only the bcrypt hash,
// never the token itself. Empty hash disables the check (local dev).
func RequireIntakeToken(tokenHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenHash == "" {
			c.Next()
			return
		}

		token := c.GetHeader(HeaderIntakeToken)
		if token == "" {
			Fail(c, apperr.UnauthorizedErr("Missing intake token."))
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
			Fail(c, apperr.UnauthorizedErr("Invalid intake token."))
			return
		}
		c.Next()
	}
}
