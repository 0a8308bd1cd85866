package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"io"
)

const documentsQuery = `SELECT id::text, COALESCE(title, ''), COALESCE(body, '')
	FROM documents
	ORDER BY created_at, id`

// Queryer is the part of *sql.DB the Postgres source needs.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresSource streams the documents table in insertion order.
type PostgresSource struct {
	rows *sql.Rows
}

// OpenPostgres starts the scan. The caller owns db and must Close the
// source before closing it.
func OpenPostgres(ctx context.Context, db Queryer) (*PostgresSource, error) {
	rows, err := db.QueryContext(ctx, documentsQuery)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	return &PostgresSource{rows: rows}, nil
}

func (s *PostgresSource) Next(ctx context.Context) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return Document{}, fmt.Errorf("iterating documents: %w", err)
		}
		return Document{}, io.EOF
	}
	var doc Document
	if err := s.rows.Scan(&doc.ID, &doc.Title, &doc.Text); err != nil {
		return Document{}, fmt.Errorf("scanning document row: %w", err)
	}
	return doc, nil
}

func (s *PostgresSource) Close() error {
	return s.rows.Close()
}
