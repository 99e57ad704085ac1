package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"labcommerce/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

const maxBodyBytes = 1 << 20

func init() {
	// request payloads are closed structs; unknown fields are client errors
	binding.EnableDecoderDisallowUnknownFields = true
}

// bindStrict reads a JSON body into dst and reports decode problems as validation errors.
func bindStrict(c *gin.Context, dst any) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	if err := c.ShouldBindJSON(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.NewValidationError("request body is empty")
		}
		return domain.NewValidationError(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
