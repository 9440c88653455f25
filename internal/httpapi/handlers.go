package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/conversation"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/document"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/logger"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/session"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/workflow"
)

var errBadRequest = errors.New("bad request")

const ServiceName = "recruiter"

type sessionResp struct {
	ID        string                 `json:"id"`
	Stage     session.Stage          `json:"stage"`
	Config    session.Config         `json:"config"`
	CreatedAt time.Time              `json:"created_at"`
	Question  string                 `json:"question,omitempty"`
	Messages  []conversation.Message `json:"messages"`
}

type answerReq struct {
	Answer string `json:"answer" binding:"required"`
}

type turnResp struct {
	Stage session.Stage `json:"stage"`
	*workflow.Turn
}

func (srv *Server) healthCheck(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  ServiceName,
		"sessions": srv.store.Len(),
	})
}

func (srv *Server) createSession(c *gin.Context) {
	var raw map[string]any
	if err := c.ShouldBindJSON(&raw); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	cfg, err := session.DecodeConfig(raw)
	if err != nil {
		fail(c, err)
		return
	}

	s := session.New(cfg)
	opening, err := srv.interviewer.Start(c.Request.Context(), s)
	if err != nil {
		fail(c, err)
		return
	}
	srv.store.Add(s)

	logger.WithSession(srv.logger, s.ID).Info("session created",
		zap.Strings("technologies", cfg.Technologies),
		zap.String("level", string(cfg.Level)),
	)

	ok(c, http.StatusCreated, sessionResp{
		ID:        s.ID,
		Stage:     s.Stage(),
		Config:    s.Config,
		CreatedAt: s.CreatedAt,
		Question:  opening.Question,
		Messages:  opening.Messages,
	})
}

func (srv *Server) answer(c *gin.Context) {
	s, err := srv.store.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var req answerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	turn, err := srv.interviewer.Answer(c.Request.Context(), s, req.Answer)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, turnResp{Stage: s.Stage(), Turn: turn})
}

func (srv *Server) messages(c *gin.Context) {
	s, err := srv.store.Get(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	messages := s.Messages()
	if raw := c.Query("tail"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, fmt.Errorf("%w: tail must be a non-negative integer", errBadRequest))
			return
		}
		messages = s.Tail(n)
	}

	ok(c, http.StatusOK, sessionResp{
		ID:        s.ID,
		Stage:     s.Stage(),
		Config:    s.Config,
		CreatedAt: s.CreatedAt,
		Question:  s.Question(),
		Messages:  messages,
	})
}

func (srv *Server) closeSession(c *gin.Context) {
	id := c.Param("id")
	if err := srv.store.Close(id); err != nil {
		fail(c, err)
		return
	}

	logger.WithSession(srv.logger, id).Info("session closed")
	ok(c, http.StatusOK, gin.H{"id": id})
}

func (srv *Server) analyze(c *gin.Context) {
	cv, err := formDocument(c, "cv")
	if err != nil {
		fail(c, err)
		return
	}
	requirements, err := formDocument(c, "requirements")
	if err != nil {
		fail(c, err)
		return
	}

	analysis, err := srv.analyzer.Run(c.Request.Context(), cv, requirements)
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, analysis)
}

func formDocument(c *gin.Context, field string) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", fmt.Errorf("%w: file %q is required", errBadRequest, field)
	}
	if fh.Size > document.MaxSize {
		return "", &document.IngestionError{Name: fh.Filename, Err: document.ErrTooLarge}
	}

	return extractUpload(fh)
}

func extractUpload(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", &document.IngestionError{Name: fh.Filename, Err: err}
	}
	defer f.Close()

	return document.Extract(fh.Filename, f)
}
