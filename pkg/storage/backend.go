package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"polyapprox/pkg/common"
)

// Backend 是样本持久化层的抽象接口
type Backend interface {
	Write(rec common.Sample) error
	BatchWrite(recs []common.Sample) error
	ReadSeries(series string, limit int) ([]common.Sample, error)
	LoadAll() ([]common.Sample, error)
	DeleteSeries(series string) error
	Truncate() error
	Close() error
}

type SQLiteBackend struct {
	db *sql.DB
}

func NewSQLiteBackend(dir string) (*SQLiteBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	dbPath := filepath.Join(dir, "samples.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// 单写者即可, SQLite 在并发写下会锁库
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS samples (
		series TEXT NOT NULL,
		t      REAL NOT NULL,
		value  REAL NOT NULL,
		PRIMARY KEY (series, t)
	);
	CREATE INDEX IF NOT EXISTS idx_samples_series ON samples(series);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteBackend{db: db}, nil
}

func (b *SQLiteBackend) Write(rec common.Sample) error {
	_, err := b.db.Exec(
		"INSERT OR REPLACE INTO samples (series, t, value) VALUES (?, ?, ?)",
		rec.Series, rec.Time, rec.Value,
	)
	return err
}

// BatchWrite 在单个事务中写入一批样本, 远快于逐条提交
func (b *SQLiteBackend) BatchWrite(recs []common.Sample) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := b.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO samples (series, t, value) VALUES (?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, rec := range recs {
		if _, err := stmt.Exec(rec.Series, rec.Time, rec.Value); err != nil {
			tx.Rollback()
			return fmt.Errorf("batch write %s: %w", rec.Series, err)
		}
	}

	return tx.Commit()
}

func (b *SQLiteBackend) ReadSeries(series string, limit int) ([]common.Sample, error) {
	query := "SELECT series, t, value FROM samples WHERE series = ? ORDER BY t"
	args := []any{series}
	if limit > 0 {
		query += " DESC LIMIT ?"
		args = append(args, limit)
	}

	rows, err := b.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs, err := scanSamples(rows)
	if err != nil {
		return nil, err
	}

	if limit > 0 {
		// DESC + LIMIT returns newest first, callers expect ascending time
		for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
			recs[i], recs[j] = recs[j], recs[i]
		}
	}
	return recs, nil
}

// LoadAll 按 (series, t) 顺序读出全部样本, 供恢复时逐序列重建
func (b *SQLiteBackend) LoadAll() ([]common.Sample, error) {
	rows, err := b.db.Query("SELECT series, t, value FROM samples ORDER BY series, t")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSamples(rows)
}

func (b *SQLiteBackend) DeleteSeries(series string) error {
	_, err := b.db.Exec("DELETE FROM samples WHERE series = ?", series)
	return err
}

func (b *SQLiteBackend) Truncate() error {
	_, err := b.db.Exec("DELETE FROM samples")
	return err
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func scanSamples(rows *sql.Rows) ([]common.Sample, error) {
	var recs []common.Sample
	for rows.Next() {
		var rec common.Sample
		if err := rows.Scan(&rec.Series, &rec.Time, &rec.Value); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
