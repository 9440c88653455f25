// Package prompts renders the fixed prompt templates used by the workflows.
// Every function is pure: the same input always produces the same prompt.
package prompts

import (
	"embed"
	"fmt"
	"strings"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/conversation"
)

//go:embed templates/*.md
var templates embed.FS

const unsetLevel = "unspecified"

// Position describes the role the candidate is interviewed for.
type Position struct {
	Technologies []string
	Level        string
}

func (p Position) technologies() string {
	techs := make([]string, 0, len(p.Technologies))
	for _, t := range p.Technologies {
		if t = singleLine(t); t != "" {
			techs = append(techs, t)
		}
	}

	return strings.Join(techs, ", ")
}

func (p Position) level() string {
	if level := singleLine(p.Level); level != "" {
		return level
	}
	return unsetLevel
}

func AnalyzeCV(cv string) string {
	return render("analyze_cv", "{{CV}}", cv)
}

func AnalyzeRequirements(requirements string) string {
	return render("analyze_requirements", "{{REQUIREMENTS}}", requirements)
}

// CompareScores asks for exactly two lines of three comma-separated integers:
// requirements first, CV second.
func CompareScores(requirementsAnalysis, cvAnalysis string) string {
	return render("compare_scores",
		"{{REQUIREMENTS_ANALYSIS}}", requirementsAnalysis,
		"{{CV_ANALYSIS}}", cvAnalysis,
	)
}

// SynthesizeCV asks for a rewritten CV from the original text and everything learned about it.
func SynthesizeCV(cv string, analyses ...string) string {
	return render("synthesize_cv",
		"{{ANALYSIS}}", strings.Join(analyses, "\n\n"),
		"{{CV}}", cv,
	)
}

func Greeting() string {
	return render("greeting")
}

// Welcome introduces the assistant and its CV analysis and interview features.
func Welcome() string {
	return render("welcome")
}

// Question asks for the next interview question. conclusions carries the latest
// review or greeting and is advisory for the model.
func Question(p Position, conclusions string) string {
	return render("question",
		"{{RECRUITER}}", recruiter(p),
		"{{CONCLUSIONS}}", conclusions,
		"{{TECHNOLOGIES}}", p.technologies(),
	)
}

// Rate must keep the "Return only a number" instruction, the reply is parsed as an integer.
func Rate(p Position, question, answer string) string {
	return render("rate",
		"{{RECRUITER}}", recruiter(p),
		"{{QUESTION}}", question,
		"{{ANSWER}}", answer,
	)
}

func ModelAnswer(p Position, question string) string {
	return render("model_answer",
		"{{RECRUITER}}", recruiter(p),
		"{{QUESTION}}", question,
	)
}

func Congratulate(p Position, answer string) string {
	return render("congratulate",
		"{{RECRUITER}}", recruiter(p),
		"{{ANSWER}}", answer,
	)
}

// Review asks for the weak areas found in the given window of messages.
func Review(p Position, messages []conversation.Message) string {
	return render("review",
		"{{RECRUITER}}", recruiter(p),
		"{{MESSAGES}}", conversation.Contents(messages),
	)
}

func recruiter(p Position) string {
	return render("recruiter",
		"{{TECHNOLOGIES}}", p.technologies(),
		"{{LEVEL}}", p.level(),
	)
}

// render substitutes all placeholders in one pass so inserted user text
// is never scanned for further placeholders.
func render(name string, oldnew ...string) string {
	data, err := templates.ReadFile("templates/" + name + ".md")
	if err != nil {
		// templates are embedded at build time, a missing one is a programming error
		panic(fmt.Sprintf("prompt template %q: %v", name, err))
	}

	template := strings.TrimSpace(string(data))
	if len(oldnew) == 0 {
		return template
	}

	return strings.NewReplacer(oldnew...).Replace(template)
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
