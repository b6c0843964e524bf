package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/filtering"
	"github.com/spigell/resume-scorer/internal/recruit"
	"github.com/spigell/resume-scorer/internal/scoring"
)

const (
	PromptReport          = "Show report"
	PromptRankingsToFile  = "Dump rankings to file"
	PromptMarkReviewed    = "Append all candidates to exclude file"
	PromptExit            = "Exit"
	defaultCandidatesPath = "candidates"
)

var errExit = errors.New("exit requested")

var prompt = promptui.Select{
	Label: "Procced?",
	Items: []string{PromptReport, PromptRankingsToFile, PromptMarkReviewed, PromptExit},
}

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank every candidate of a job by overall score",
	Run: func(cmd *cobra.Command, _ []string) {
		rank(cmd)
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)

	rankCmd.Flags().StringP("job", "o", "", "job offer file (json)")
	rankCmd.Flags().StringSliceP("candidates", "c", []string{defaultCandidatesPath}, "candidate files or directories with *.json resumes")
	rankCmd.Flags().BoolP("auto-aprove", "y", false, "do not ask for confirmation, print the report and exit")
	rankCmd.Flags().StringP("exclude-file", "e", "", "special file with reviewed candidates to exclude. Default is unset.")
	rankCmd.Flags().Float64P("min-score", "m", 0, "drop candidates with an overall score below this value")
	rankCmd.Flags().IntP("top", "t", 0, "keep only the best N candidates, 0 keeps all")
	rankCmd.Flags().IntP("workers", "w", 0, "candidates scored concurrently, 0 means one per CPU")
	rankCmd.Flags().Bool("keep-failed", false, "keep candidates that could not be scored")
	rankCmd.Flags().Bool("degrade-unavailable", false, "score a dimension as 0 when its embeddings are unavailable")
	rankCmd.Flags().StringSlice("disable-filter", nil, "filters to skip: failed, exclude_file, min_score, top")

	rankCmd.MarkFlagRequired("job")

	viper.BindPFlag("exclude-file", rankCmd.Flags().Lookup("exclude-file"))
	viper.BindPFlag("min-score", rankCmd.Flags().Lookup("min-score"))
	viper.BindPFlag("top", rankCmd.Flags().Lookup("top"))
	viper.BindPFlag("workers", rankCmd.Flags().Lookup("workers"))
	viper.BindPFlag("keep-failed", rankCmd.Flags().Lookup("keep-failed"))
}

func rank(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

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

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	l.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	jobPath, _ := cmd.Flags().GetString("job")
	job, err := recruit.LoadJob(jobPath)
	if err != nil {
		l.Fatal("loading job", zap.String("path", jobPath), zap.Error(err))
	}

	paths, _ := cmd.Flags().GetStringSlice("candidates")
	candidates, err := recruit.LoadCandidates(paths...)
	if err != nil {
		l.Fatal("loading candidates", zap.Strings("paths", paths), zap.Error(err))
	}

	l.Info("loaded candidates", zap.String("job_id", job.ID), zap.Int("count", len(candidates)))

	if len(candidates) == 0 {
		l.Info("exiting", zap.String("reason", "no candidates found"))
		return
	}

	s := newStack(ctx, config, l)
	defer s.Close()
	defer s.writeMetrics()

	scorer, err := s.scorer()
	if err != nil {
		l.Fatal("building scorer", zap.Error(err))
	}

	ranker := scoring.NewRanker(scorer, &scoring.RankerConfig{Workers: config.Workers}, l, s.metrics)

	rankings, err := ranker.Rank(ctx, job, candidates)
	if err != nil {
		l.Fatal("ranking candidates", zap.Error(err))
	}

	disabled, _ := cmd.Flags().GetStringSlice("disable-filter")
	filters, err := prepareFilters(disabled)
	if err != nil {
		l.Fatal("preparing filters", zap.Error(err))
	}

	rankings, err = filtering.Run(ctx, filterConfig(config), filtering.Deps{Logger: l}, filters, rankings)
	if err != nil {
		l.Fatal("filtering failed", zap.Error(err))
	}

	for _, status := range filtering.Describe(filters) {
		l.Debug("filter status",
			zap.String("name", status.Name),
			zap.Bool("enabled", status.Enabled),
			zap.String("reason", status.Reason),
			zap.Any("details", status.Details),
		)
	}

	if rankings.Len() == 0 {
		l.Info("exiting", zap.String("reason", "no candidates left after filters"))
		return
	}

	if auto, _ := cmd.Flags().GetBool("auto-aprove"); auto {
		if err := printReport(rankings); err != nil {
			l.Fatal("printing report", zap.Error(err))
		}
		return
	}

	for {
		_, action, err := prompt.Run()
		if err != nil {
			l.Fatal("exiting", zap.Error(err))
		}

		l.Info("current list of candidates", zap.Int("count", rankings.Len()))

		if err := handleAction(action, l, config, rankings); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			l.Fatal("exiting", zap.Error(err))
		}
	}
}

// prepareFilters returns the default filter chain with the named filters
// disabled. Unknown names are an error.
func prepareFilters(disabled []string) ([]filtering.Filter, error) {
	filters := filtering.Default()

	known := make(map[string]struct{}, len(filters))
	for _, filter := range filters {
		known[filter.Name()] = struct{}{}
	}

	for _, name := range disabled {
		name = strings.TrimSpace(name)
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
		filtering.DisableByName(filters, name, "disabled by --disable-filter")
	}

	return filters, nil
}

func filterConfig(config *Config) *filtering.Config {
	return &filtering.Config{
		MinScore:    config.MinScore,
		Top:         config.Top,
		ExcludeFile: config.ExcludeFile,
		KeepFailed:  config.KeepFailed,
	}
}

func handleAction(action string, logger *zap.Logger, config *Config, rankings *scoring.Rankings) error {
	switch action {
	case PromptReport:
		pretty, _ := json.MarshalIndent(rankings.Report(), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates count", rankings.Len()))
		return nil
	case PromptRankingsToFile:
		filename, err := rankings.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump rankings to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptMarkReviewed:
		if err := markReviewed(config.ExcludeFile, rankings); err != nil {
			return err
		}
		logger.Info("candidates appended to exclude file",
			zap.String("path", config.ExcludeFile),
			zap.Int("count", rankings.Scored()),
		)
		return errExit
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func markReviewed(path string, rankings *scoring.Rankings) error {
	if path == "" {
		return errors.New("exclude file is not configured (set exclude-file or --exclude-file)")
	}

	reviewed, err := recruit.LoadReviewed(path)
	if err != nil {
		return fmt.Errorf("reading exclude file: %w", err)
	}

	reviewed.Append(rankings.ToReviewed())

	if err := reviewed.ToFile(path); err != nil {
		return fmt.Errorf("writing exclude file: %w", err)
	}
	return nil
}

func printReport(rankings *scoring.Rankings) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rankings.Report())
}
