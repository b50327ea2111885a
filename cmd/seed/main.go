// Command seed imports a sales CSV into the SQLite backend.
package main

import (
	"context"
	"flag"
	"os"

	"cropcast/internal/cli"
	"cropcast/internal/dataset/csvfile"
	"cropcast/internal/dataset/sqlite"
	"cropcast/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	csvPath := flag.String("csv", cfg.DataFile, "sales CSV to import")
	dbPath := flag.String("db", cfg.SQLiteDBPath, "SQLite database to replace")
	flag.Parse()

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := seed(ctx, logger, *csvPath, *dbPath); err != nil {
		logger.Error("Seeding failed",
			log.FieldOperation, log.OpSeed,
			log.FieldSource, *csvPath,
			log.FieldError, err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, logger *log.Logger, csvPath, dbPath string) error {
	table, err := csvfile.New(csvPath).Load(ctx)
	if err != nil {
		return err
	}

	repo, err := sqlite.Open(dbPath)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.ReplaceAll(ctx, table); err != nil {
		return err
	}

	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("Seeded sales dataset",
		log.FieldOperation, log.OpSeed,
		log.FieldSource, csvPath,
		"db_path", dbPath,
		log.FieldRecords, n,
		log.FieldCrops, len(table.Crops()))
	return nil
}
