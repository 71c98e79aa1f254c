package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Proton-105/guild-ledger/internal/domain"
	apperrors "github.com/Proton-105/guild-ledger/internal/errors"
)

const eventColumns = `id, transfer_id, kind, event, requester_id, actor_id, amount, method, detail, requested_at, created_at`

// PostgresLog appends events to transfer_events. Rows are never updated.
type PostgresLog struct {
	db  *sql.DB
	log *slog.Logger
}

var _ Log = (*PostgresLog)(nil)

func NewPostgresLog(db *sql.DB, log *slog.Logger) *PostgresLog {
	if log == nil {
		log = slog.Default()
	}

	return &PostgresLog{db: db, log: log}
}

func (l *PostgresLog) Record(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO transfer_events
			(transfer_id, kind, event, requester_id, actor_id, amount, method, detail, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := l.db.ExecContext(ctx, query,
		event.TransferID,
		string(event.Kind),
		string(event.Type),
		event.RequesterID,
		event.ActorID,
		int64(event.Amount),
		string(event.Method),
		event.Detail,
		event.RequestedAt,
	)
	if err != nil {
		l.log.Error("failed to record audit event",
			slog.String("transfer_id", event.TransferID),
			slog.String("event", string(event.Type)),
			slog.Any("error", err),
		)
		return apperrors.NewDatabaseError(fmt.Errorf("insert transfer event: %w", err))
	}

	return nil
}

func (l *PostgresLog) Unresolved(ctx context.Context, before time.Time) ([]Event, error) {
	const query = `
		SELECT ` + eventColumns + `
		FROM transfer_events r
		WHERE r.event = 'requested'
		  AND r.requested_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM transfer_events t
			WHERE t.transfer_id = r.transfer_id
			  AND t.requested_at = r.requested_at
			  AND t.event <> 'requested'
		  )
		ORDER BY r.requested_at
	`

	return l.query(ctx, query, before)
}

func (l *PostgresLog) History(ctx context.Context, requesterID int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 10
	}

	const query = `
		SELECT ` + eventColumns + `
		FROM transfer_events
		WHERE requester_id = $1 AND event <> 'requested'
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	return l.query(ctx, query, requesterID, limit)
}

func (l *PostgresLog) query(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("query transfer events: %w", err))
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e                 Event
			kind, typ, method string
			amount            int64
		)
		if err := rows.Scan(
			&e.ID,
			&e.TransferID,
			&kind,
			&typ,
			&e.RequesterID,
			&e.ActorID,
			&amount,
			&method,
			&e.Detail,
			&e.RequestedAt,
			&e.CreatedAt,
		); err != nil {
			return nil, apperrors.NewDatabaseError(fmt.Errorf("scan transfer event: %w", err))
		}

		e.Kind = domain.TransferKind(kind)
		e.Type = EventType(typ)
		e.Method = domain.PaymentMethod(method)
		e.Amount = domain.Amount(amount)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError(fmt.Errorf("iterate transfer events: %w", err))
	}

	return events, nil
}
