package workflow

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/ai"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/conversation"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/logger"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/prompts"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/scoring"
)

// Analysis is the outcome of the comparison graph.
type Analysis struct {
	CVAnalysis           string                 `json:"cv_analysis"`
	RequirementsAnalysis string                 `json:"requirements_analysis"`
	Comparison           scoring.Comparison     `json:"comparison"`
	Chart                []scoring.Row          `json:"chart"`
	ModelCV              string                 `json:"model_cv"`
	Log                  []conversation.Message `json:"log"`
}

// Analyzer compares a CV against job requirements.
type Analyzer struct {
	generator ai.Generator
	scores    scoring.Range
	logger    *zap.Logger
}

func NewAnalyzer(generator ai.Generator, scores scoring.Range, log *zap.Logger) *Analyzer {
	return &Analyzer{
		generator: generator,
		scores:    scores,
		logger:    logger.WithFields(log, zap.String("workflow", "comparison")),
	}
}

type comparisonRun struct {
	cv           string
	requirements string
	log          *conversation.Log
	result       Analysis
}

// Run executes analyze_cv, analyze_requirements, compare_scores and synthesize_cv in order.
// On failure the returned Analysis holds everything completed before the failing node.
func (a *Analyzer) Run(ctx context.Context, cv, requirements string) (*Analysis, error) {
	cv = strings.TrimSpace(cv)
	requirements = strings.TrimSpace(requirements)
	if cv == "" || requirements == "" {
		return nil, ErrEmptyInput
	}

	run := &comparisonRun{cv: cv, requirements: requirements, log: conversation.NewLog()}
	for _, seed := range []string{cv, requirements} {
		if _, err := run.log.Append(conversation.RoleSystem, seed); err != nil {
			return nil, err
		}
	}

	a.logger.Info("starting cv analysis",
		zap.Int("cv_length", utf8.RuneCountInString(cv)),
		zap.Int("requirements_length", utf8.RuneCountInString(requirements)),
	)

	for node := NodeAnalyzeCV; node != NodeDone; node = nextComparison(node) {
		if err := a.step(ctx, node, run); err != nil {
			run.result.Log = run.log.Messages()
			return &run.result, err
		}
	}

	run.result.Log = run.log.Messages()
	a.logger.Info("cv analysis completed", zap.Any("comparison", run.result.Comparison))

	return &run.result, nil
}

func (a *Analyzer) step(ctx context.Context, node Node, run *comparisonRun) error {
	switch node {
	case NodeAnalyzeCV:
		text, err := a.complete(ctx, node, prompts.AnalyzeCV(run.cv))
		if err != nil {
			return err
		}
		run.result.CVAnalysis = text
		return appendAssistant(run.log, text)

	case NodeAnalyzeRequirements:
		text, err := a.complete(ctx, node, prompts.AnalyzeRequirements(run.requirements))
		if err != nil {
			return err
		}
		run.result.RequirementsAnalysis = text
		return appendAssistant(run.log, text)

	case NodeCompareScores:
		text, err := a.complete(ctx, node, prompts.CompareScores(run.result.RequirementsAnalysis, run.result.CVAnalysis))
		if err != nil {
			return err
		}
		comparison, err := scoring.ParseComparison(text, a.scores)
		if err != nil {
			a.logger.Warn("comparison output rejected", zap.String(logger.FieldNode, string(node)), zap.String("raw", text), zap.Error(err))
			return fmt.Errorf("%s: %w", node, err)
		}
		run.result.Comparison = comparison
		run.result.Chart = comparison.Table()
		return appendAssistant(run.log, text)

	case NodeSynthesizeCV:
		text, err := a.complete(ctx, node, prompts.SynthesizeCV(run.cv, run.result.CVAnalysis, run.result.RequirementsAnalysis))
		if err != nil {
			return err
		}
		run.result.ModelCV = text
		return appendAssistant(run.log, text)

	default:
		return fmt.Errorf("unknown comparison node %q", node)
	}
}

func (a *Analyzer) complete(ctx context.Context, node Node, prompt string) (string, error) {
	return complete(ctx, a.generator, a.logger, node, prompt)
}

func complete(ctx context.Context, generator ai.Generator, log *zap.Logger, node Node, prompt string) (string, error) {
	log.Debug("running node", zap.String(logger.FieldNode, string(node)))

	text, err := generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", &CompletionError{Node: node, Err: err}
	}

	return text, nil
}

func appendAssistant(log *conversation.Log, text string) error {
	_, err := log.Append(conversation.RoleAssistant, text)
	return err
}
