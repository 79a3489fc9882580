package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"sentence-ppl/internal/config"
	"sentence-ppl/internal/csvio"
	"sentence-ppl/internal/db"
	"sentence-ppl/internal/helper"
	"sentence-ppl/internal/scorer"
	"sentence-ppl/internal/stats"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	delimiter := flag.String("delimiter", "", "Delimiter used in the CSV file, overrides the config value")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <config file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	run(context.Background(), flag.Arg(0), *delimiter)
}

func run(ctx context.Context, configPath, delimiterFlag string) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if delimiterFlag != "" {
		if utf8.RuneCountInString(delimiterFlag) != 1 {
			log.Fatal().Str("delimiter", delimiterFlag).Msg("Delimiter must be a single character")
		}
		cfg.Delimiter = delimiterFlag
	}

	log.Debug().Interface("config", cfg).Msg("Loaded config")

	sentences, err := csvio.LoadColumn(cfg.CSVFile, cfg.CSVSentenceHeader, cfg.Delimiter)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading sentences")
	}
	if len(sentences) == 0 {
		log.Fatal().Str("file", cfg.CSVFile).Msg("No data rows to score")
	}

	log.Info().
		Int("sentences", len(sentences)).
		Int("tokens", scorer.CountTokens(cfg.ModelName, sentences)).
		Msg("Loaded sentences")

	model, err := scorer.New(cfg.ModelName, cfg.BaseURL, cfg.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing language model")
	}

	perplexities, err := scorer.ScoreBatches(ctx, model, sentences, cfg.BatchSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error calculating perplexity")
	}

	if err := csvio.AppendColumn(cfg.CSVFile, sentences, perplexities, cfg.Delimiter); err != nil {
		log.Fatal().Err(err).Msg("Error writing perplexity column")
	}

	summary, err := stats.Summarize(perplexities)
	if err != nil {
		log.Fatal().Err(err).Msg("Error computing summary")
	}

	if cfg.Database != nil {
		storeRun(ctx, cfg, sentences, perplexities, summary)
	}

	log.Info().Msg("Run summary")
	helper.PrettyPrint(summary)
	fmt.Printf("\nAverage Perplexity of the data input: %g\n", summary.Mean)
}

func storeRun(ctx context.Context, cfg *config.Config, sentences []string, perplexities []float64, summary stats.Summary) {
	runID, err := helper.NewRunID()
	if err != nil {
		log.Fatal().Err(err).Msg("Error generating run ID")
	}

	sqldb, err := db.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	dbInstance := db.NewDB(sqldb, cfg.Database.Debug)
	defer dbInstance.Close()

	if err := db.InitDB(ctx, dbInstance); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}

	if err := db.StoreRun(ctx, dbInstance, runID, cfg.ModelName, cfg.CSVFile, sentences, perplexities, summary); err != nil {
		log.Fatal().Err(err).Msg("Error storing run")
	}

	log.Info().Str("run_id", runID).Int("scores", summary.Count).Msg("Stored run")
}
