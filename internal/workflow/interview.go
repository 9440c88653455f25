package workflow

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/ai"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/conversation"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/logger"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/prompts"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/scoring"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/session"
)

const (
	DefaultReviewWindow  = 10
	DefaultPassThreshold = 7
)

// InterviewOptions tune the rating sub-graph.
type InterviewOptions struct {
	ReviewWindow  int           `mapstructure:"review-window"`
	PassThreshold int           `mapstructure:"pass-threshold"`
	Scores        scoring.Range `mapstructure:",squash"`
}

func (o InterviewOptions) withDefaults() InterviewOptions {
	if o.ReviewWindow <= 0 {
		o.ReviewWindow = DefaultReviewWindow
	}
	if o.PassThreshold <= 0 {
		o.PassThreshold = DefaultPassThreshold
	}
	if o.Scores == (scoring.Range{}) {
		o.Scores = scoring.DefaultRange
	}
	return o
}

// Rating is the score the model gave an answer, clamped to the score range.
// Parsed is false when the reply was not a number; Score is then zero.
type Rating struct {
	Score  int    `json:"score"`
	Parsed bool   `json:"parsed"`
	Raw    string `json:"raw"`
}

// Opening is what Start produces.
type Opening struct {
	Greeting string                 `json:"greeting"`
	Question string                 `json:"question"`
	Messages []conversation.Message `json:"messages"`
}

// Turn is the outcome of one answered question.
type Turn struct {
	Rating   Rating                 `json:"rating"`
	Route    Node                   `json:"route"`
	Feedback string                 `json:"feedback"`
	Review   string                 `json:"review"`
	Question string                 `json:"question"`
	Messages []conversation.Message `json:"messages"`
}

// Interviewer drives the mock-interview state machine for a session.
type Interviewer struct {
	generator ai.Generator
	opts      InterviewOptions
	logger    *zap.Logger
}

func NewInterviewer(generator ai.Generator, opts InterviewOptions, log *zap.Logger) *Interviewer {
	return &Interviewer{
		generator: generator,
		opts:      opts.withDefaults(),
		logger:    logger.WithFields(log, zap.String("workflow", "interview")),
	}
}

func (iv *Interviewer) Options() InterviewOptions {
	return iv.opts
}

// Start greets the candidate and asks the first question. The session must be
// in StageStart and hold a valid configuration.
func (iv *Interviewer) Start(ctx context.Context, s *session.Session) (*Opening, error) {
	unlock, err := s.Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if s.Stage() != session.StageStart {
		return nil, fmt.Errorf("start: %w (stage %s)", ErrWrongStage, s.Stage())
	}
	if err := s.Config.Validate(); err != nil {
		return nil, err
	}

	log := logger.WithSession(iv.logger, s.ID)
	log.Info("starting interview",
		zap.Strings("technologies", s.Config.Technologies),
		zap.String("level", string(s.Config.Level)),
	)

	first := s.Len()
	greeting, err := iv.step(ctx, s, log, NodeGreeting, prompts.Greeting())
	if err != nil {
		return nil, err
	}

	question, err := iv.ask(ctx, s, log, greeting)
	if err != nil {
		return nil, err
	}

	return &Opening{
		Greeting: greeting,
		Question: question,
		Messages: s.Tail(s.Len() - first),
	}, nil
}

// Answer records the candidate's answer to the open question, runs the rating
// sub-graph and asks the next question. A failure leaves the session awaiting an answer.
func (iv *Interviewer) Answer(ctx context.Context, s *session.Session, answer string) (*Turn, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, ErrEmptyAnswer
	}

	unlock, err := s.Lock()
	if err != nil {
		return nil, err
	}
	defer unlock()

	if s.Stage() != session.StageAwaitingAnswer {
		return nil, fmt.Errorf("answer: %w (stage %s)", ErrWrongStage, s.Stage())
	}

	log := logger.WithSession(iv.logger, s.ID)
	first := s.Len()
	question := s.Question()

	if _, err := s.Append(conversation.RoleUser, answer); err != nil {
		return nil, err
	}

	turn := &Turn{}
	pos := s.Config.Position()

	for node := NodeRate; node != NodeDone; node = nextInterview(node, turn.Rating, iv.opts.PassThreshold) {
		var prompt string
		switch node {
		case NodeRate:
			prompt = prompts.Rate(pos, question, answer)
		case NodeModelAnswer:
			prompt = prompts.ModelAnswer(pos, question)
		case NodeCongratulate:
			prompt = prompts.Congratulate(pos, answer)
		case NodeReview:
			prompt = prompts.Review(pos, s.Tail(iv.opts.ReviewWindow))
		default:
			return nil, fmt.Errorf("unknown interview node %q", node)
		}

		text, err := iv.step(ctx, s, log, node, prompt)
		if err != nil {
			return nil, err
		}

		switch node {
		case NodeRate:
			turn.Rating = iv.rating(log, text)
			turn.Route = Route(turn.Rating, iv.opts.PassThreshold)
		case NodeModelAnswer, NodeCongratulate:
			turn.Feedback = text
		case NodeReview:
			turn.Review = text
		}
	}

	next, err := iv.ask(ctx, s, log, turn.Review)
	if err != nil {
		return nil, err
	}
	turn.Question = next
	turn.Messages = s.Tail(s.Len() - first)

	log.Info("answer processed",
		zap.Int("score", turn.Rating.Score),
		zap.Bool("parsed", turn.Rating.Parsed),
		zap.String("route", string(turn.Route)),
	)

	return turn, nil
}

func (iv *Interviewer) ask(ctx context.Context, s *session.Session, log *zap.Logger, conclusions string) (string, error) {
	question, err := iv.step(ctx, s, log, NodeQuestion, prompts.Question(s.Config.Position(), conclusions))
	if err != nil {
		return "", err
	}
	s.Ask(question)
	return question, nil
}

func (iv *Interviewer) step(ctx context.Context, s *session.Session, log *zap.Logger, node Node, prompt string) (string, error) {
	text, err := complete(ctx, iv.generator, log, node, prompt)
	if err != nil {
		log.Warn("node failed", zap.String(logger.FieldNode, string(node)), zap.Error(err))
		return "", err
	}
	if _, err := s.Append(conversation.RoleAssistant, text); err != nil {
		return "", err
	}
	return text, nil
}

func (iv *Interviewer) rating(log *zap.Logger, raw string) Rating {
	score, err := scoring.ParseRating(raw, iv.opts.Scores)
	if err != nil {
		log.Warn("rating is not a number, treating as low score",
			zap.String("raw", raw),
			zap.Error(err),
		)
		return Rating{Raw: raw}
	}
	return Rating{Score: score, Parsed: true, Raw: raw}
}
