package restapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Patricklolilol/ffmpeg-service/pkg/errno"
)

// Response is the uniform JSON envelope returned by every endpoint.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success writes a 200 envelope with the given payload.
func Success(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, Response{
		Code:    0,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Accepted writes a 202 envelope for asynchronously handled submissions.
func Accepted(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusAccepted, Response{
		Code:    0,
		Message: errno.OK.Message,
		Data:    data,
	})
}

// Failed maps an error to the envelope, using errno codes when available.
func Failed(ctx *gin.Context, err error) {
	var e *errno.Errno
	if !errors.As(err, &e) {
		e = errno.ErrInternalServer
	}

	ctx.JSON(httpStatus(e), Response{
		Code:    e.Code,
		Message: err.Error(),
	})
}

// httpStatus picks the transport status for an errno code.
func httpStatus(e *errno.Errno) int {
	switch e {
	case errno.ErrMediaURLRequired, errno.ErrMediaURLInvalid, errno.ErrJobIDRequired,
		errno.ErrArtifactIllegal, errno.ErrInvalidParam:
		return http.StatusBadRequest
	case errno.ErrUnauthorized:
		return http.StatusUnauthorized
	case errno.ErrJobNotFound, errno.ErrArtifactNotFound, errno.ErrNotFound:
		return http.StatusNotFound
	case errno.ErrJobExists, errno.ErrJobNotCancellable:
		return http.StatusConflict
	case errno.ErrQueueFull:
		return http.StatusTooManyRequests
	case errno.ErrStoreDown:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
