package mw

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/Tom8810/janso/internal/auth"
)

// AccountIDKey is the gin context key holding the authenticated account id.
const AccountIDKey = "accountID"

// Authenticator resolves a bearer token to an account id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// Auth verifies the bearer token of a request and stores the account id
// under AccountIDKey. Without required, requests carrying no token pass
// through unauthenticated; a token that is present must still be valid.
func Auth(a Authenticator, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractTokenFromHeader(c.Request)
		if err != nil {
			if required {
				AbortWithError(c, auth.ErrLoginRequired)
				return
			}
			c.Next()
			return
		}

		accountID, err := a.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Set(AccountIDKey, accountID)
		c.Next()
	}
}

// AccountID returns the authenticated account id, if any.
func AccountID(c *gin.Context) (string, bool) {
	id := c.GetString(AccountIDKey)
	return id, id != ""
}
