package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List archived interviews or print one transcript",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		history(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 20, "how many sessions to list")
}

func history(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	logger, config := setup()

	archive, err := openArchive(config.Archive)
	if err != nil {
		logger.Fatal("opening transcript archive", zap.Error(err))
	}
	if archive == nil {
		logger.Fatal("transcript archive is not configured", zap.String("hint", "set archive.path in the configuration file"))
	}
	defer archive.Close()

	out := cmd.OutOrStdout()

	if len(args) == 1 {
		t, err := archive.Load(ctx, args[0])
		if err != nil {
			logger.Fatal("loading transcript", zap.Error(err))
		}

		fmt.Fprintf(out, "Session %s, %s %s, started %s\n\n",
			t.ID, t.Config.Level, strings.Join(t.Config.Technologies, ", "), t.CreatedAt.Local().Format(time.DateTime))
		for _, msg := range t.Messages {
			fmt.Fprintf(out, "[%s] %s\n%s\n\n", msg.CreatedAt.Local().Format(time.TimeOnly), msg.Role, msg.Content)
		}
		return
	}

	limit, _ := cmd.Flags().GetInt("limit")
	summaries, err := archive.List(ctx, limit)
	if err != nil {
		logger.Fatal("listing transcripts", zap.Error(err))
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLevel\tTechnologies\tMessages\tClosed")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			s.ID, s.Level, strings.Join(s.Technologies, ","), s.Messages, s.ClosedAt.Local().Format(time.DateTime))
	}
	tw.Flush()
}
