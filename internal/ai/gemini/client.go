package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/ai"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/logger"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/utils"
)

const (
	DefaultModel        = "gemini-2.5-flash"
	DefaultMaxRetries   = 1
	DefaultMaxLogLength = 200
	defaultRetryDelay   = 2 * time.Second
	maxRetryDelay       = 30 * time.Second
)

var retryAfterRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*s`)

// wait is replaced in tests.
var wait = utils.WaitFor

type modelClient interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Options configures a Generator. Zero values fall back to defaults.
type Options struct {
	Model             string
	MaxRetries        int
	Timeout           time.Duration
	Temperature       float32
	SystemInstruction string
	MaxLogLength      int
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models      modelClient
	model       string
	system      string
	temperature float32
	maxRetries  int
	retryDelay  time.Duration
	timeout     time.Duration
	maxLogLen   int
	logger      *zap.Logger
}

var _ ai.Generator = (*Generator)(nil)

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, opts Options, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts, log), nil
}

func newGenerator(models modelClient, opts Options, log *zap.Logger) *Generator {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}

	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = DefaultMaxLogLength
	}

	return &Generator{
		models:      models,
		model:       model,
		system:      strings.TrimSpace(opts.SystemInstruction),
		temperature: opts.Temperature,
		maxRetries:  maxRetries,
		retryDelay:  defaultRetryDelay,
		timeout:     opts.Timeout,
		maxLogLen:   maxLogLen,
		logger:      logger.WithCommonFields(log, ai.ProviderGemini, model),
	}
}

// GenerateContent sends the prompt to Gemini and returns the textual response.
// Temporary API failures are retried up to the configured number of attempts.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	g.logger.Debug("gemini generate content request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	for attempt := 1; ; attempt++ {
		output, err := g.generate(ctx, prompt)
		if err == nil {
			g.logger.Debug("gemini generate content response",
				zap.Int("attempt", attempt),
				zap.Int("response_length", utf8.RuneCountInString(output)),
				zap.String("response_preview", utils.TruncateForLog(output, g.maxLogLen)),
			)
			return output, nil
		}

		delay, retry := g.retryDelayFor(err, attempt)
		if !retry || attempt >= g.maxRetries {
			return "", err
		}

		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", g.maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return "", fmt.Errorf("waiting for retry: %w", err)
		}
	}
}

func (g *Generator) generate(ctx context.Context, prompt string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), g.config())
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := responseText(resp)
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

func (g *Generator) config() *genai.GenerateContentConfig {
	if g.system == "" && g.temperature == 0 {
		return nil
	}

	cfg := &genai.GenerateContentConfig{}
	if g.system != "" {
		cfg.SystemInstruction = genai.NewContentFromText(g.system, genai.RoleUser)
	}
	if g.temperature > 0 {
		cfg.Temperature = genai.Ptr(g.temperature)
	}

	return cfg
}

// retryDelayFor decides whether err is worth another attempt and how long to wait first.
func (g *Generator) retryDelayFor(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return 0, false
		}
		apiErr = *apiErrPtr
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		if advertised, ok := advertisedDelay(apiErr.Message); ok {
			if advertised > maxRetryDelay {
				return 0, false
			}
			return advertised, true
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
	default:
		return 0, false
	}

	return time.Duration(attempt) * g.retryDelay, true
}

func advertisedDelay(message string) (time.Duration, bool) {
	match := retryAfterRe.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	return time.Duration(seconds * float64(time.Second)), true
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
