package api

import "github.com/gin-gonic/gin"

// AbortWithError records err on the context for the access log and responds with
// the {code, error} envelope. message is what the client sees.
func AbortWithError(ctx *gin.Context, status int, code string, message string, err error) {
	ctx.Abort()
	if err != nil {
		ctx.Error(err)
	}
	ctx.PureJSON(status, &APIError{
		Code:    code,
		Message: message,
	})
}
