package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagelift/pagelift-backend/internal/domain/pages"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// RespondDomainError maps a domain error code to its HTTP status. Access
// denial on draft surfaces answers 404, never 401 or 403, so unpublished
// pages stay indistinguishable from absent ones.
func RespondDomainError(c *gin.Context, err error) {
	code := pages.CodeOf(err)
	switch code {
	case pages.CodeNotFound:
		RespondError(c, http.StatusNotFound, string(code), err)
	case pages.CodeAccessDenied:
		c.JSON(http.StatusNotFound, ErrorEnvelope{
			Error: APIError{Message: "not found", Code: string(pages.CodeNotFound)},
		})
	case pages.CodeConflict:
		RespondError(c, http.StatusConflict, string(code), err)
	case pages.CodeValidation, pages.CodeDiffFormat:
		RespondError(c, http.StatusBadRequest, string(code), err)
	case pages.CodeCorruptSnapshot:
		RespondError(c, http.StatusInternalServerError, string(code), err)
	default:
		RespondError(c, http.StatusInternalServerError, string(pages.CodeInternal), err)
	}
}
