package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeModels struct {
	mu    sync.Mutex
	calls []modelCallRecord
	queue []fakeModelResponse
}

type modelCallRecord struct {
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

type fakeModelResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeModelResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prompt := ""
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		prompt = contents[0].Parts[0].Text
	}
	f.calls = append(f.calls, modelCallRecord{model: model, prompt: prompt, config: config})

	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]
	return res.resp, res.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()

	var waited []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		waited = append(waited, d)
		return nil
	}
	t.Cleanup(func() { wait = original })

	return &waited
}

func TestGeneratorJoinsTextParts(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("  first ", "", "second"), nil)

	g := newGenerator(models, Options{Model: "gemini-pro"}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "  hello  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if output != "first\nsecond" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 1 || models.calls[0].model != "gemini-pro" || models.calls[0].prompt != "hello" {
		t.Fatalf("unexpected calls: %+v", models.calls)
	}

	if models.calls[0].config != nil {
		t.Fatalf("expected no generation config by default")
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	models := &fakeModels{}
	g := newGenerator(models, Options{}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty prompt")
	}

	if len(models.calls) != 0 {
		t.Fatalf("expected no calls, got %d", len(models.calls))
	}
}

func TestGeneratorEmptyResponseIsError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("   "), nil)

	g := newGenerator(models, Options{MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty response")
	}

	if len(models.calls) != 1 {
		t.Fatalf("empty responses must not be retried, got %d calls", len(models.calls))
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	waited := noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	models.enqueue(nil, tempErr)
	models.enqueue(textResponse("retry ok"), nil)

	g := newGenerator(models, Options{
		Model:             "gemini-pro",
		MaxRetries:        2,
		SystemInstruction: "system",
		Temperature:       0.2,
	}, zap.NewNop())

	output, err := g.GenerateContent(context.Background(), "message")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}

	if len(*waited) != 1 || (*waited)[0] != defaultRetryDelay {
		t.Fatalf("unexpected backoff: %v", *waited)
	}

	for _, call := range models.calls {
		if call.config == nil || call.config.SystemInstruction == nil {
			t.Fatalf("expected system instruction to be set")
		}
		if got := call.config.SystemInstruction.Parts[0].Text; got != "system" {
			t.Fatalf("unexpected system instruction: %q", got)
		}
		if call.config.Temperature == nil || *call.config.Temperature != 0.2 {
			t.Fatalf("unexpected temperature: %v", call.config.Temperature)
		}
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := newGenerator(models, Options{MaxRetries: 2}, zap.NewNop())

	_, err := g.GenerateContent(context.Background(), "msg")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped api error, got %v", err)
	}

	if len(models.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(models.calls))
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	quotaErr := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	models.enqueue(nil, quotaErr)

	g := newGenerator(models, Options{MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorHonoursShortQuotaDelay(t *testing.T) {
	waited := noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusTooManyRequests, Message: "Please retry in 1.5s."})
	models.enqueue(textResponse("ok"), nil)

	g := newGenerator(models, Options{MaxRetries: 3}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(*waited) != 1 || (*waited)[0] != 1500*time.Millisecond {
		t.Fatalf("expected advertised delay, got %v", *waited)
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := newGenerator(models, Options{MaxRetries: 5}, zap.NewNop())

	if _, err := g.GenerateContent(context.Background(), "msg"); err == nil {
		t.Fatal("expected error")
	}

	if len(models.calls) != 1 {
		t.Fatalf("expected single call, got %d", len(models.calls))
	}
}

func TestGeneratorDefaults(t *testing.T) {
	g := newGenerator(&fakeModels{}, Options{}, nil)

	if g.Model() != DefaultModel {
		t.Fatalf("expected default model, got %q", g.Model())
	}
	if g.maxRetries != 1 {
		t.Fatalf("expected a single attempt by default, got %d", g.maxRetries)
	}
	if g.maxLogLen != DefaultMaxLogLength {
		t.Fatalf("unexpected max log length: %d", g.maxLogLen)
	}
}
