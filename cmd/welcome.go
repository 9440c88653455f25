package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/ai"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/prompts"
)

var welcomeCmd = &cobra.Command{
	Use:   "welcome",
	Short: "Introduce the assistant and what it can do",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		logger, config := setup()

		generator, err := newGenerator(ctx, config.AI, logger)
		if err != nil {
			logger.Fatal("creating ai generator", zap.Error(err))
		}

		if err := welcome(ctx, generator, cmd.OutOrStdout()); err != nil {
			logger.Fatal("welcome message", zap.Error(err))
		}
	},
}

func init() {
	rootCmd.AddCommand(welcomeCmd)
}

func welcome(ctx context.Context, generator ai.Generator, out io.Writer) error {
	text, err := generator.GenerateContent(ctx, prompts.Welcome())
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(out, "%s\n", text)
	return err
}
