package repository

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"
)

//go:embed sql/insert-contact-message.sql
var insertContactMessageSQL string

//go:embed sql/get-contact-messages.sql
var getContactMessagesSQL string

// timestampLayout matches SQLite's strftime('%Y-%m-%dT%H:%M:%fZ').
const timestampLayout = "2006-01-02T15:04:05.000Z"

type ContactMessage struct {
	ID        string
	Name      string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}

type ContactRepository interface {
	InsertMessage(m ContactMessage) error
	// GetMessages returns the newest messages first.
	GetMessages(limit int) ([]ContactMessage, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) ContactRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertMessage(m ContactMessage) error {
	_, err := r.db.Exec(insertContactMessageSQL,
		m.ID, m.Name, m.Email, m.Subject, m.Message,
		m.CreatedAt.UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

func (r *repositoryImpl) GetMessages(limit int) ([]ContactMessage, error) {
	rows, err := r.db.Query(getContactMessagesSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close contact message rows", "error", err)
		}
	}()

	var out []ContactMessage
	for rows.Next() {
		var (
			m       ContactMessage
			created string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &created); err != nil {
			return nil, err
		}
		m.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", created, err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
