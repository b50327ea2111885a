// Package sqlite stores the sales dataset in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"cropcast/internal/core"
	"cropcast/internal/dataset"

	_ "modernc.org/sqlite"
)

type Repository struct {
	db     *sql.DB
	dbPath string
}

var _ dataset.Source = (*Repository)(nil)

// Open creates the database directory if needed, connects and applies migrations.
func Open(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db, dbPath: dbPath}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads every row in insertion order.
func (r *Repository) Load(ctx context.Context) (core.SalesTable, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date, crop, quantity_sold FROM sales ORDER BY id`)
	if err != nil {
		return core.SalesTable{}, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	var records []core.SalesRecord
	for rows.Next() {
		var (
			rawDate string
			rec     core.SalesRecord
		)
		if err := rows.Scan(&rawDate, &rec.Crop, &rec.QuantitySold); err != nil {
			return core.SalesTable{}, fmt.Errorf("scan sales row: %w", err)
		}
		rec.Date, err = dataset.ParseDate(rawDate)
		if err != nil {
			return core.SalesTable{}, fmt.Errorf("row %d: %w", len(records)+1, err)
		}
		if err := rec.Validate(); err != nil {
			return core.SalesTable{}, fmt.Errorf("row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return core.SalesTable{}, fmt.Errorf("iterate sales: %w", err)
	}

	if len(records) == 0 {
		return core.SalesTable{}, core.ErrEmptyDataset
	}
	return core.NewSalesTable(records), nil
}

// ReplaceAll swaps the stored dataset for table in a single transaction.
func (r *Repository) ReplaceAll(ctx context.Context, table core.SalesTable) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM sales`); err != nil {
		return fmt.Errorf("clear sales: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sales (date, crop, quantity_sold) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range table.Records() {
		if _, err = stmt.ExecContext(ctx, rec.Date.String(), rec.Crop, rec.QuantitySold); err != nil {
			return fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Sales dataset replaced",
		"db_path", r.dbPath,
		"records", table.Len())
	return nil
}

// Count returns the number of stored rows.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sales: %w", err)
	}
	return n, nil
}
