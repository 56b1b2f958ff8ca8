package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/studentinfo/internal/pkg/apperrors"
)

// multipartOverhead allows for the form fields and part headers around the files
const multipartOverhead = 1 << 20

// MaxBodySize limits the request body. Uploads carry up to two files of perFile bytes each.
func MaxBodySize(perFile int64) gin.HandlerFunc {
	limit := 2*perFile + multipartOverhead
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}

// BindJSON decodes the request body into obj. Malformed bodies become validation errors;
// an oversized body keeps its *http.MaxBytesError.
func BindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return apperrors.NewValidationError("body", "Invalid request format")
	}
	return nil
}
