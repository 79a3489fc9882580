// Package db persists scored sentences and run summaries to Postgres.
// Persistence is optional; the pipeline runs file-to-file without it.
package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"sentence-ppl/internal/config"
	"sentence-ppl/internal/stats"
)

// Score is one scored sentence of a run.
type Score struct {
	bun.BaseModel `bun:"table:scores,alias:s"`
	ID            int64   `bun:"id,pk,autoincrement"`
	RunID         string  `bun:"run_id,notnull"`
	RowIndex      int     `bun:"row_index,notnull"`
	Sentence      string  `bun:"sentence,notnull"`
	Perplexity    float64 `bun:"perplexity,notnull"`
}

// Run is the summary row written once per scoring run.
type Run struct {
	bun.BaseModel `bun:"table:runs,alias:r"`
	ID            string    `bun:"id,pk"`
	ModelName     string    `bun:"model_name,notnull"`
	SourceFile    string    `bun:"source_file,notnull"`
	SentenceCount int       `bun:"sentence_count,notnull"`
	MeanPPL       float64   `bun:"mean_ppl,notnull"`
	MinPPL        float64   `bun:"min_ppl,notnull"`
	MaxPPL        float64   `bun:"max_ppl,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN))), nil
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*Run)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateTable().Model((*Score)(nil)).IfNotExists().Exec(ctx)
	return err
}

// StoreRun inserts the run summary and all scored rows.
func StoreRun(ctx context.Context, db *bun.DB, runID, modelName, sourceFile string, sentences []string, perplexities []float64, summary stats.Summary) error {
	run := &Run{
		ID:            runID,
		ModelName:     modelName,
		SourceFile:    sourceFile,
		SentenceCount: summary.Count,
		MeanPPL:       summary.Mean,
		MinPPL:        summary.Min,
		MaxPPL:        summary.Max,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := db.NewInsert().Model(run).Exec(ctx); err != nil {
		return err
	}

	scores := make([]Score, len(perplexities))
	for i, ppl := range perplexities {
		scores[i] = Score{
			RunID:      runID,
			RowIndex:   i,
			Sentence:   sentences[i],
			Perplexity: ppl,
		}
	}
	_, err := db.NewInsert().Model(&scores).Exec(ctx)
	return err
}
