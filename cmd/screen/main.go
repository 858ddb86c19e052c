// Command screen runs one authenticity screening batch: it loads the
// response matrix, executes the full pipeline, and persists one record
// per participant.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"authscreen/adapters/blobstore"
	"authscreen/adapters/jsonout"
	"authscreen/adapters/matrixio"
	"authscreen/adapters/postgres"
	"authscreen/internal"
	"authscreen/internal/config"
	"authscreen/internal/pipeline"
	"authscreen/ports"
)

func main() {
	_ = godotenv.Load()
	log := internal.NewDefaultLogger()

	if err := run(context.Background(), log); err != nil {
		log.Error("screening run failed: %v", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, log *internal.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	source := matrixSource(cfg)
	m, err := source.ReadMatrix(ctx)
	if err != nil {
		return err
	}
	log.Info("matrix loaded: %d participants x %d items", m.NParticipants(), m.NItems())

	store, err := blobstore.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return err
	}

	out, err := pipeline.New(cfg, store, log).Run(ctx, m)
	if err != nil {
		return err
	}

	repo, closeRepo, err := recordRepository(cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	if err := repo.SaveRecords(ctx, out.RunID, out.Records); err != nil {
		return err
	}
	log.Info("run %s: %d records persisted", out.RunID, len(out.Records))
	return nil
}

func matrixSource(cfg *config.Config) ports.MatrixSource {
	if cfg.Input.XLSXPath != "" {
		return matrixio.NewXLSXSource(cfg.Input.XLSXPath)
	}
	return matrixio.NewCSVSource(cfg.Input.ItemsCSV, cfg.Input.ResponsesCSV)
}

func recordRepository(cfg *config.Config) (ports.RecordRepository, func(), error) {
	if cfg.Output.DatabaseURL != "" {
		repo, err := postgres.NewRepository(cfg.Output.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() { repo.Close() }, nil
	}
	return jsonout.NewWriter(cfg.Output.JSONPath), func() {}, nil
}
