package workflow

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// scriptedGenerator answers each prompt by recognising which template produced it.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies map[Node]string
	fail    map[Node]error
	calls   []Node
	prompts map[Node][]string
	asked   int
}

func newScriptedGenerator() *scriptedGenerator {
	return &scriptedGenerator{
		replies: map[Node]string{
			NodeGreeting:            "Hello, I am your recruitment assistant.",
			NodeRate:                "8",
			NodeModelAnswer:         "A model answer.",
			NodeCongratulate:        "Well done.",
			NodeReview:              "- revise goroutines",
			NodeAnalyzeCV:           "CV analysis",
			NodeAnalyzeRequirements: "Requirements analysis",
			NodeCompareScores:       "5,7,6\n4,6,3",
			NodeSynthesizeCV:        "Model CV",
		},
		fail:    map[Node]error{},
		prompts: map[Node][]string{},
	}
}

func (g *scriptedGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	node := classify(prompt)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls = append(g.calls, node)
	g.prompts[node] = append(g.prompts[node], prompt)

	if err := g.fail[node]; err != nil {
		return "", err
	}
	if node == NodeQuestion {
		g.asked++
		return "Question " + string(rune('0'+g.asked)) + "?", nil
	}
	reply, ok := g.replies[node]
	if !ok {
		return "", errors.New("unexpected prompt")
	}
	return reply, nil
}

func (g *scriptedGenerator) Calls() []Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]Node(nil), g.calls...)
}

func classify(prompt string) Node {
	switch {
	case strings.Contains(prompt, "Write a hi"):
		return NodeGreeting
	case strings.Contains(prompt, "Return only a number"):
		return NodeRate
	case strings.Contains(prompt, "write a model answer"):
		return NodeModelAnswer
	case strings.Contains(prompt, "Evaluate the provided answer"):
		return NodeCongratulate
	case strings.Contains(prompt, "Analyze the following messages"):
		return NodeReview
	case strings.Contains(prompt, "Ask only one question"):
		return NodeQuestion
	case strings.Contains(prompt, "Analyze this CV"):
		return NodeAnalyzeCV
	case strings.Contains(prompt, "Analyze the job requirements"):
		return NodeAnalyzeRequirements
	case strings.Contains(prompt, "Always return only the numbers"):
		return NodeCompareScores
	case strings.Contains(prompt, "model CV"):
		return NodeSynthesizeCV
	default:
		return NodeDone
	}
}
