package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/ai"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/scoring"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/session"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/workflow"
)

type fixture struct {
	srv    *Server
	store  *session.Store
	closed []string
	calls  int
	mu     sync.Mutex
	reply  func(prompt string) (string, error)
}

func newFixture(t *testing.T, rateLimit int) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{}
	f.reply = func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Write a hi"):
			return "Hello!", nil
		case strings.Contains(prompt, "Return only a number"):
			return "9", nil
		case strings.Contains(prompt, "Always return only the numbers"):
			return "5,5,5\n3,4,5", nil
		default:
			return "generated text", nil
		}
	}
	gen := ai.GeneratorFunc(func(_ context.Context, prompt string) (string, error) {
		f.mu.Lock()
		f.calls++
		reply := f.reply
		f.mu.Unlock()
		return reply(prompt)
	})

	f.store = session.NewStore(10, 0, func(s *session.Session) {
		f.mu.Lock()
		f.closed = append(f.closed, s.ID)
		f.mu.Unlock()
	})

	srv, err := New(zap.NewNop(), Config{
		Mode:            gin.TestMode,
		RateLimitPerMin: rateLimit,
		Interviewer:     workflow.NewInterviewer(gen, workflow.InterviewOptions{}, zap.NewNop()),
		Analyzer:        workflow.NewAnalyzer(gen, scoring.Range{}, zap.NewNop()),
		Store:           f.store,
	})
	require.NoError(t, err)
	f.srv = srv

	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, Resp) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return f.serve(t, req)
}

func (f *fixture) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, Resp) {
	t.Helper()
	w := httptest.NewRecorder()
	f.srv.Handler().ServeHTTP(w, req)

	var resp Resp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func (f *fixture) createSession(t *testing.T) string {
	t.Helper()
	w, resp := f.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{
		"technologies": "go",
		"level":        "mid",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := resp.Data.(map[string]any)
	return data["id"].(string)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 0)

	w, resp := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, resp.ErrorCode)
	assert.Equal(t, "healthy", resp.Data.(map[string]any)["status"])
}

func TestCreateSession(t *testing.T) {
	f := newFixture(t, 0)

	w, resp := f.do(t, http.MethodPost, "/api/v1/sessions", map[string]any{
		"technologies": []string{"Go"},
		"level":        "Mid",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := resp.Data.(map[string]any)
	assert.Equal(t, "awaiting_answer", data["stage"])
	assert.Equal(t, "generated text", data["question"])
	assert.Len(t, data["messages"], 2)
	assert.Equal(t, 1, f.store.Len())
}

func TestCreateSessionValidation(t *testing.T) {
	f := newFixture(t, 0)

	for name, body := range map[string]map[string]any{
		"no technologies": {"level": "Mid"},
		"unknown level":   {"technologies": "Go", "level": "Principal"},
		"unknown field":   {"technologies": "Go", "level": "Mid", "salary": 1},
	} {
		t.Run(name, func(t *testing.T) {
			w, resp := f.do(t, http.MethodPost, "/api/v1/sessions", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, http.StatusBadRequest, resp.ErrorCode)
		})
	}
	assert.Zero(t, f.calls)
	assert.Zero(t, f.store.Len())
}

func TestAnswerAndMessages(t *testing.T) {
	f := newFixture(t, 0)
	id := f.createSession(t)

	w, resp := f.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/answers", map[string]string{"answer": "Channels."})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := resp.Data.(map[string]any)
	assert.Equal(t, string(workflow.NodeCongratulate), data["route"])
	assert.Equal(t, float64(9), data["rating"].(map[string]any)["score"])
	assert.Len(t, data["messages"], 5)

	w, resp = f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages?tail=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data.(map[string]any)["messages"], 3)

	w, resp = f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data.(map[string]any)["messages"], 7)

	w, _ = f.do(t, http.MethodGet, "/api/v1/sessions/"+id+"/messages?tail=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnswerErrors(t *testing.T) {
	f := newFixture(t, 0)

	w, _ := f.do(t, http.MethodPost, "/api/v1/sessions/missing/answers", map[string]string{"answer": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	id := f.createSession(t)

	w, _ = f.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/answers", map[string]string{"answer": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	f.mu.Lock()
	f.reply = func(string) (string, error) { return "", errors.New("upstream down") }
	f.mu.Unlock()

	w, resp := f.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/answers", map[string]string{"answer": "x"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, resp.Message, "rate")
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t, 0)
	id := f.createSession(t)

	w, _ := f.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{id}, f.closed)

	w, _ = f.do(t, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func multipartRequest(t *testing.T, files map[string][2]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, file := range files {
		part, err := mw.CreateFormFile(field, file[0])
		require.NoError(t, err)
		_, err = part.Write([]byte(file[1]))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analyses", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyze(t *testing.T) {
	f := newFixture(t, 0)

	w, resp := f.serve(t, multipartRequest(t, map[string][2]string{
		"cv":           {"cv.txt", "Jane Doe, Go developer"},
		"requirements": {"job.md", "# Senior Go engineer"},
	}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := resp.Data.(map[string]any)
	chart := data["chart"].([]any)
	require.Len(t, chart, 3)
	first := chart[0].(map[string]any)
	assert.Equal(t, "Experience", first["category"])
	assert.Equal(t, float64(3), first["you"])
	assert.Equal(t, float64(5), first["requirements"])
	assert.Equal(t, "generated text", data["model_cv"])
}

func TestAnalyzeErrors(t *testing.T) {
	f := newFixture(t, 0)

	cases := map[string]struct {
		files  map[string][2]string
		status int
	}{
		"missing requirements": {
			files:  map[string][2]string{"cv": {"cv.txt", "text"}},
			status: http.StatusBadRequest,
		},
		"unsupported format": {
			files:  map[string][2]string{"cv": {"cv.pdf", "%PDF"}, "requirements": {"job.txt", "text"}},
			status: http.StatusBadRequest,
		},
		"empty cv": {
			files:  map[string][2]string{"cv": {"cv.txt", "   "}, "requirements": {"job.txt", "text"}},
			status: http.StatusBadRequest,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w, _ := f.serve(t, multipartRequest(t, tc.files))
			assert.Equal(t, tc.status, w.Code)
		})
	}
	assert.Zero(t, f.calls)

	f.mu.Lock()
	f.reply = func(string) (string, error) { return "no numbers here", nil }
	f.mu.Unlock()

	w, _ := f.serve(t, multipartRequest(t, map[string][2]string{
		"cv":           {"cv.txt", "text"},
		"requirements": {"job.txt", "text"},
	}))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, 10)

	// burst is one request for ten per minute
	w, _ := f.do(t, http.MethodGet, "/api/v1/sessions/x/messages", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp := f.do(t, http.MethodGet, "/api/v1/sessions/x/messages", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, http.StatusTooManyRequests, resp.ErrorCode)

	w, _ = f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(session.ErrBusy))
	assert.Equal(t, http.StatusConflict, statusFor(workflow.ErrWrongStage))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
