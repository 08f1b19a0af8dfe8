package mw

import (
	"github.com/gin-gonic/gin"

	"github.com/Tom8810/janso/internal/apperr"
)

// ErrorBody is the JSON body of every error response.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AbortWithError writes err as {"error", "code"} with its mapped status.
// Only the user-facing message of an error reaches the client.
func AbortWithError(c *gin.Context, err error) {
	e := apperr.From(err)
	c.AbortWithStatusJSON(apperr.HTTPStatus(e), ErrorBody{Error: e.Message, Code: e.Code})
}
