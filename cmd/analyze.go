package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/document"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/scoring"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/workflow"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Compare a CV with job requirements and draft a model CV",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("cv", "c", "", "CV file ("+strings.Join(document.Extensions, ", ")+")")
	analyzeCmd.Flags().StringP("requirements", "r", "", "job requirements file")
	analyzeCmd.Flags().StringP("output", "o", "", "write the model CV to this file instead of stdout")

	analyzeCmd.MarkFlagRequired("cv")
	analyzeCmd.MarkFlagRequired("requirements")
}

func analyze(cmd *cobra.Command) {
	ctx := context.Background()
	logger, config := setup()

	cv, err := document.ExtractFile(cmd.Flag("cv").Value.String())
	if err != nil {
		logger.Fatal("reading cv", zap.Error(err))
	}

	requirements, err := document.ExtractFile(cmd.Flag("requirements").Value.String())
	if err != nil {
		logger.Fatal("reading requirements", zap.Error(err))
	}

	generator, err := newGenerator(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("creating ai generator", zap.Error(err))
	}

	analyzer := workflow.NewAnalyzer(generator, config.Interview.Scores, logger)

	result, err := analyzer.Run(ctx, cv, requirements)
	if err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "## CV analysis\n\n%s\n\n", result.CVAnalysis)
	fmt.Fprintf(out, "## Requirements analysis\n\n%s\n\n", result.RequirementsAnalysis)
	fmt.Fprintf(out, "## Comparison\n\n")
	writeChart(out, result.Chart)

	if path := cmd.Flag("output").Value.String(); path != "" {
		if err := os.WriteFile(path, []byte(result.ModelCV+"\n"), 0o644); err != nil {
			logger.Fatal("writing model cv", zap.Error(err))
		}
		logger.Info("model cv written", zap.String("filename", path))
		return
	}

	fmt.Fprintf(out, "\n## Model CV\n\n%s\n", result.ModelCV)
}

func writeChart(w io.Writer, rows []scoring.Row) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Category\tYou\tRequirements\t")
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", row.Category, row.You, row.Requirements, bar(row.You, row.Requirements))
	}
	tw.Flush()
}

// bar renders the gap between the two scores, one cell per point.
func bar(you, requirements int) string {
	you, requirements = max(you, 0), max(requirements, 0)
	switch {
	case you >= requirements:
		return strings.Repeat("#", requirements) + strings.Repeat("+", you-requirements)
	default:
		return strings.Repeat("#", you) + strings.Repeat(".", requirements-you)
	}
}
