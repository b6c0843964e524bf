package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/logger"
	"github.com/spigell/resume-scorer/internal/recruit"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a single candidate against a job",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("candidate", "c", "", "candidate resume file (json)")
	scoreCmd.Flags().StringP("job", "o", "", "job offer file (json)")
	scoreCmd.Flags().Bool("degrade-unavailable", false, "score a dimension as 0 when its embeddings are unavailable")

	scoreCmd.MarkFlagRequired("candidate")
	scoreCmd.MarkFlagRequired("job")
}

func score(cmd *cobra.Command) {
	ctx := context.Background()

	l, err := newLogger()
	if err != nil {
		log.Fatal(err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}
	if cmd.Flags().Changed("degrade-unavailable") {
		config.DegradeUnavailable, _ = cmd.Flags().GetBool("degrade-unavailable")
	}

	candidatePath, _ := cmd.Flags().GetString("candidate")
	jobPath, _ := cmd.Flags().GetString("job")

	candidate, err := recruit.LoadCandidate(candidatePath)
	if err != nil {
		l.Fatal("loading candidate", zap.String("path", candidatePath), zap.Error(err))
	}

	job, err := recruit.LoadJob(jobPath)
	if err != nil {
		l.Fatal("loading job", zap.String("path", jobPath), zap.Error(err))
	}

	s := newStack(ctx, config, l)
	defer s.Close()

	scorer, err := s.scorer()
	if err != nil {
		l.Fatal("building scorer", zap.Error(err))
	}

	l.Info("scoring candidate", logger.ScoringFields("", job.ID, candidate.ID)...)

	result, err := scorer.Score(ctx, candidate, job)
	s.writeMetrics()
	if err != nil {
		l.Fatal("scoring candidate", zap.Error(err))
	}

	pretty, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		l.Fatal("encoding result", zap.Error(err))
	}
	fmt.Println(string(pretty))
}

func newLogger() (*zap.Logger, error) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	l.Debug("starting "+app, zap.String("version", version))
	return l, nil
}
