package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/document"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/scoring"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/session"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/workflow"
)

const (
	MessageSuccess      = "Success"
	DefaultErrorMessage = "Something went wrong"
)

// Resp is the JSON envelope of every response.
type Resp struct {
	ErrorCode int    `json:"error_code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, Resp{ErrorCode: 0, Message: MessageSuccess, Data: data})
}

// fail writes err with the status it maps to. Internal errors are not echoed.
func fail(c *gin.Context, err error) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = DefaultErrorMessage
	}

	c.Error(err) //nolint:errcheck
	c.AbortWithStatusJSON(status, Resp{ErrorCode: status, Message: message})
}

func statusFor(err error) int {
	var (
		ingestion  *document.IngestionError
		completion *workflow.CompletionError
	)

	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, workflow.ErrEmptyInput),
		errors.Is(err, workflow.ErrEmptyAnswer),
		errors.Is(err, session.ErrInvalidConfig),
		errors.As(err, &ingestion):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrBusy), errors.Is(err, workflow.ErrWrongStage):
		return http.StatusConflict
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, scoring.ErrMalformedOutput), errors.As(err, &completion):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
