package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/xaenox/relay-bot/internal/models"
)

// SQLSink stores log records as rows of the message_log table. Rows keep
// insertion order through their serial id.
type SQLSink struct {
	db          *sql.DB
	placeholder func(n int) string
}

func newSQLSink(db *sql.DB, schema string, placeholder func(n int) string) (*SQLSink, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("error executing migrations: %w", err)
	}
	return &SQLSink{db: db, placeholder: placeholder}, nil
}

func (s *SQLSink) bind(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Append inserts records inside one transaction so a bucket is stored
// completely or not at all.
func (s *SQLSink) Append(ctx context.Context, key models.BucketKey, records []models.MessageRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.bind(`
		INSERT INTO message_log (conversation, log_date, message_id, sent_at, text,
			sender_id, sender_username, sender_first_name, sender_last_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		_, err := stmt.ExecContext(ctx,
			key.Label,
			key.Date,
			rec.MessageID,
			rec.Date,
			rec.Text,
			rec.SenderID,
			rec.SenderUsername,
			rec.SenderFirstName,
			rec.SenderLastName,
		)
		if err != nil {
			return fmt.Errorf("error inserting message %d: %w", rec.MessageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing messages: %w", err)
	}
	return nil
}

func (s *SQLSink) Records(ctx context.Context, key models.BucketKey) ([]models.MessageRecord, error) {
	query := s.bind(`
		SELECT message_id, sent_at, text, sender_id, sender_username, sender_first_name, sender_last_name
		FROM message_log
		WHERE conversation = ? AND log_date = ?
		ORDER BY id ASC`)

	rows, err := s.db.QueryContext(ctx, query, key.Label, key.Date)
	if err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}
	defer rows.Close()

	records := []models.MessageRecord{}
	for rows.Next() {
		var rec models.MessageRecord
		err := rows.Scan(
			&rec.MessageID,
			&rec.Date,
			&rec.Text,
			&rec.SenderID,
			&rec.SenderUsername,
			&rec.SenderFirstName,
			&rec.SenderLastName,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning message: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return records, nil
}

func (s *SQLSink) Close() error {
	return s.db.Close()
}
