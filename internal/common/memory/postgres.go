package memory

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresSessionLog stores turns in the askora_turns table.
type PostgresSessionLog struct {
	db *sql.DB
}

func NewPostgresSessionLog(db *sql.DB) *PostgresSessionLog {
	return &PostgresSessionLog{db: db}
}

func (l *PostgresSessionLog) Record(ctx context.Context, turn Turn) error {
	at := turn.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO askora_turns (session_id, question, intent, answer, created_at) VALUES ($1, $2, $3, $4, $5)`,
		turn.SessionID, turn.Question, turn.Intent, turn.Answer, at,
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}
	return nil
}

// Recent returns up to n turns for sessionID, oldest first.
func (l *PostgresSessionLog) Recent(ctx context.Context, sessionID string, n int) ([]Turn, error) {
	if n <= 0 {
		n = ContextTurns
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT question, intent, answer, created_at FROM askora_turns WHERE session_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		sessionID, n,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		t := Turn{SessionID: sessionID}
		if err := rows.Scan(&t.Question, &t.Intent, &t.Answer, &t.At); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
