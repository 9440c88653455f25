package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/httpapi"
	logpkg "github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/logger"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/session"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/transcript"
	"github.com/KamilR29/MultiAgentSystemForRecruitmentTraining/internal/workflow"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interview and analysis workflows over HTTP",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("addr", "a", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, config := setup()
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	logger.Info("starting the recruiter server", zap.String("version", version))

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

	store := session.NewStore(config.Server.MaxSessions, config.Server.SessionTTL, archiveOnClose(archive, logger))

	srv, err := httpapi.New(logger, httpapi.Config{
		Addr:            config.Server.Addr,
		Mode:            config.Server.Mode,
		RateLimitPerMin: config.Server.RateLimitPerMin,
		Interviewer:     workflow.NewInterviewer(generator, config.Interview, logger),
		Analyzer:        workflow.NewAnalyzer(generator, config.Interview.Scores, logger),
		Store:           store,
	})
	if err != nil {
		logger.Fatal("creating http server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("http server stopped", zap.Error(err))
	}

	// flush live sessions into the archive before it is closed
	store.CloseAll()
	logger.Info("server stopped")
}

// archiveOnClose saves every closed session that has a conversation. It returns nil
// when there is no archive.
func archiveOnClose(archive *transcript.Archive, logger *zap.Logger) func(*session.Session) {
	if archive == nil {
		return nil
	}

	return func(s *session.Session) {
		log := logpkg.WithSession(logger, s.ID)
		if s.Len() == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()

		if err := archive.Save(ctx, s.Transcript()); err != nil {
			log.Error("archiving transcript", zap.Error(err))
			return
		}
		log.Info("transcript archived", zap.Int("messages", s.Len()))
	}
}
