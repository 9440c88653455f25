package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	logpkg "github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/logger"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/session"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/workflow"
)

const (
	PromptDone      = "done"
	archiveTimeout  = 10 * time.Second
	interviewExit   = "exit"
	interviewPrompt = "Your answer (type exit to finish)"
)

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a mock technical interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		interview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringSliceP("tech", "t", nil, "technologies to be interviewed on, e.g. Go,Python. Asked interactively when unset.")
	interviewCmd.Flags().StringP("level", "l", "", "job level: Junior, Mid or Senior. Asked interactively when unset.")
}

func interview(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	cfg, err := sessionConfig(cmd)
	if err != nil {
		logger.Fatal("configuring the interview", zap.Error(err))
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai generator", zap.Error(err))
	}

	archive, err := openArchive(config.Archive)
	if err != nil {
		logger.Fatal("opening transcript archive", zap.Error(err))
	}
	if archive != nil {
		defer archive.Close()
	}

	interviewer := workflow.NewInterviewer(generator, config.Interview, logger)
	s := session.New(cfg)
	out := cmd.OutOrStdout()

	opening, err := interviewer.Start(ctx, s)
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}
	fmt.Fprintf(out, "\n%s\n\n%s\n\n", opening.Greeting, opening.Question)

	for {
		answer, err := (&promptui.Prompt{Label: interviewPrompt}).Run()
		if err != nil {
			if !errors.Is(err, promptui.ErrInterrupt) && !errors.Is(err, promptui.ErrEOF) {
				logger.Error("reading answer", zap.Error(err))
			}
			break
		}
		if strings.EqualFold(strings.TrimSpace(answer), interviewExit) {
			break
		}

		turn, err := interviewer.Answer(ctx, s, answer)
		if err != nil {
			if errors.Is(err, workflow.ErrEmptyAnswer) {
				continue
			}
			// the question stays open, the candidate may answer again
			logger.Error("processing answer", zap.Error(err))
			continue
		}

		printTurn(out, turn)
	}

	if archive != nil {
		archiveCtx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := archive.Save(archiveCtx, s.Transcript()); err != nil {
			logger.Error("archiving transcript", zap.Error(err))
			return
		}
		logger.Info("transcript archived", zap.String(logpkg.FieldSession, s.ID))
	}
}

func printTurn(out io.Writer, turn *workflow.Turn) {
	score := fmt.Sprintf("%d", turn.Rating.Score)
	if !turn.Rating.Parsed {
		score = fmt.Sprintf("unrated (%q)", turn.Rating.Raw)
	}

	fmt.Fprintf(out, "\nScore: %s\n\n%s\n\nWorth revising:\n%s\n\n%s\n\n", score, turn.Feedback, turn.Review, turn.Question)
}

// sessionConfig reads the interview setup from flags, asking for anything missing.
func sessionConfig(cmd *cobra.Command) (session.Config, error) {
	techs, err := cmd.Flags().GetStringSlice("tech")
	if err != nil {
		return session.Config{}, err
	}
	level := cmd.Flag("level").Value.String()

	if len(techs) == 0 {
		if techs, err = selectTechnologies(); err != nil {
			return session.Config{}, err
		}
	}

	if level == "" {
		levelPrompt := promptui.Select{
			Label: "Job level",
			Items: session.Levels,
		}
		if _, level, err = levelPrompt.Run(); err != nil {
			return session.Config{}, err
		}
	}

	return session.DecodeConfig(map[string]any{
		"technologies": techs,
		"level":        level,
	})
}

func selectTechnologies() ([]string, error) {
	var selected []string
	for {
		items := []string{}
		for _, tech := range session.Technologies {
			if !slices.Contains(selected, tech) {
				items = append(items, tech)
			}
		}
		if len(selected) > 0 {
			items = append([]string{PromptDone}, items...)
		}

		techPrompt := promptui.Select{
			Label: fmt.Sprintf("Technologies (selected: %s)", strings.Join(selected, ", ")),
			Items: items,
			Size:  10,
		}

		_, choice, err := techPrompt.Run()
		if err != nil {
			return nil, err
		}
		if choice == PromptDone {
			return selected, nil
		}
		selected = append(selected, choice)
	}
}
