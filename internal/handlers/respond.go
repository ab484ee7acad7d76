package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	svcErr "harmony/internal/errors"
)

// abortWithError converts a classified service error into an HTTP response.
func abortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(svcErr.HTTPStatus(err), gin.H{"error": err.Error()})
}

// pathID parses a uint64 path parameter, returning 0 when absent or invalid.
func pathID(c *gin.Context, name string) uint64 {
	id, _ := strconv.ParseUint(c.Param(name), 10, 64)
	return id
}
