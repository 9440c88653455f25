// Package workflow runs the CV comparison and mock-interview graphs.
//
// Both graphs are fixed state machines over Node values. Each node makes exactly
// one completion call and appends exactly one message; the next node is chosen by
// a pure transition function.
package workflow

import (
	"errors"
	"fmt"
)

// Node is one step of a workflow graph.
type Node string

const (
	NodeAnalyzeCV           Node = "analyze_cv"
	NodeAnalyzeRequirements Node = "analyze_requirements"
	NodeCompareScores       Node = "compare_scores"
	NodeSynthesizeCV        Node = "synthesize_cv"

	NodeGreeting     Node = "greeting"
	NodeQuestion     Node = "question"
	NodeRate         Node = "rate"
	NodeModelAnswer  Node = "model_answer"
	NodeCongratulate Node = "congratulate"
	NodeReview       Node = "review"

	NodeDone Node = "done"
)

var (
	ErrEmptyInput  = errors.New("cv and requirements text must not be empty")
	ErrEmptyAnswer = errors.New("answer must not be empty")
	ErrWrongStage  = errors.New("operation not allowed in the current interview stage")
)

// CompletionError reports a failed completion call. Nothing is appended for the failed node.
type CompletionError struct {
	Node Node
	Err  error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s: completion failed: %v", e.Node, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// nextComparison is the straight-line transition of the comparison graph.
func nextComparison(n Node) Node {
	switch n {
	case NodeAnalyzeCV:
		return NodeAnalyzeRequirements
	case NodeAnalyzeRequirements:
		return NodeCompareScores
	case NodeCompareScores:
		return NodeSynthesizeCV
	default:
		return NodeDone
	}
}

// nextInterview is the transition of the rating sub-graph. Only NodeRate branches.
func nextInterview(n Node, r Rating, threshold int) Node {
	switch n {
	case NodeRate:
		return Route(r, threshold)
	case NodeModelAnswer, NodeCongratulate:
		return NodeReview
	default:
		return NodeDone
	}
}

// Route picks the branch after rating. An unparsed rating counts as a low score.
func Route(r Rating, threshold int) Node {
	if r.Parsed && r.Score >= threshold {
		return NodeCongratulate
	}
	return NodeModelAnswer
}
