package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	ledgerv1 "github.com/mcdev12/typeduel/go/internal/ledger/ledgerv1"
	"github.com/mcdev12/typeduel/go/internal/models"
	"github.com/mcdev12/typeduel/go/internal/sqlutil"
)

const schema = `
CREATE TABLE IF NOT EXISTS race_sessions (
  id             BIGINT PRIMARY KEY,
  participant_a  TEXT NOT NULL,
  participant_b  TEXT NOT NULL,
  stake          NUMERIC(78,0) NOT NULL,
  reference_text TEXT NOT NULL,
  start_time     TIMESTAMPTZ,
  end_time       TIMESTAMPTZ,
  ready_a        BOOLEAN NOT NULL DEFAULT FALSE,
  ready_b        BOOLEAN NOT NULL DEFAULT FALSE,
  phase          TEXT NOT NULL,
  winner         TEXT NOT NULL,
  score_a        INTEGER NOT NULL DEFAULT 0,
  score_b        INTEGER NOT NULL DEFAULT 0,
  submitted_a    BOOLEAN NOT NULL DEFAULT FALSE,
  submitted_b    BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS race_session_counter (
  singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
  next_id   BIGINT NOT NULL
);
`

const selectColumns = `
  id, participant_a, participant_b, stake::text, reference_text,
  start_time, end_time, ready_a, ready_b, phase, winner,
  score_a, score_b, submitted_a, submitted_b`

// PostgresRepository stores sessions in Postgres through a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new Postgres-backed repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ Repository = (*PostgresRepository)(nil)

// EnsureSchema creates the ledger tables if they do not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Session) (models.SessionID, error) {
	var id int64
	err := sqlutil.Run(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
            INSERT INTO race_session_counter (singleton, next_id) VALUES (TRUE, 1)
            ON CONFLICT (singleton) DO UPDATE SET next_id = race_session_counter.next_id + 1
            RETURNING next_id - 1
        `).Scan(&id)
		if err != nil {
			return fmt.Errorf("allocate id: %w", err)
		}

		_, err = tx.Exec(ctx, `
            INSERT INTO race_sessions (
              id, participant_a, participant_b, stake, reference_text,
              start_time, end_time, ready_a, ready_b, phase, winner
            ) VALUES (
              $1,$2,$3,CAST($4::text AS NUMERIC),$5,$6,$7,$8,$9,$10,$11
            )
        `,
			id, string(s.ParticipantA), string(s.ParticipantB), ledgerv1.FormatAmount(s.Stake), s.ReferenceText,
			s.StartTime, s.EndTime, s.ReadyA, s.ReadyB, string(s.Phase), string(s.Winner),
		)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return models.SessionID(id), nil
}

func (r *PostgresRepository) Get(ctx context.Context, id models.SessionID) (*Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+selectColumns+` FROM race_sessions WHERE id = $1`, int64(id))
	rec, err := scanRecord(row)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id models.SessionID, fn func(*Record) error) (*Record, error) {
	var out *Record
	err := sqlutil.Run(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rec, err := lockRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}

		s := rec.Session
		_, err = tx.Exec(ctx, `
            UPDATE race_sessions SET
              participant_b = $2, start_time = $3, end_time = $4,
              ready_a = $5, ready_b = $6, phase = $7, winner = $8,
              score_a = $9, score_b = $10, submitted_a = $11, submitted_b = $12
            WHERE id = $1
        `,
			int64(id), string(s.ParticipantB), s.StartTime, s.EndTime,
			s.ReadyA, s.ReadyB, string(s.Phase), string(s.Winner),
			rec.ScoreA, rec.ScoreB, rec.SubmittedA, rec.SubmittedB,
		)
		if err != nil {
			return fmt.Errorf("update session %s: %w", id, err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id models.SessionID, fn func(*Record) error) (*Record, error) {
	var out *Record
	err := sqlutil.Run(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rec, err := lockRecord(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM race_sessions WHERE id = $1`, int64(id)); err != nil {
			return fmt.Errorf("delete session %s: %w", id, err)
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PostgresRepository) Count(ctx context.Context) (uint64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT next_id FROM race_session_counter WHERE singleton), 0)`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return uint64(n), nil
}

func lockRecord(ctx context.Context, tx pgx.Tx, id models.SessionID) (*Record, error) {
	row := tx.QueryRow(ctx, `SELECT`+selectColumns+` FROM race_sessions WHERE id = $1 FOR UPDATE`, int64(id))
	return scanRecord(row)
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		id                     int64
		a, b, stake, phase, wn string
		s                      models.Session
		rec                    Record
	)
	err := row.Scan(
		&id, &a, &b, &stake, &s.ReferenceText,
		&s.StartTime, &s.EndTime, &s.ReadyA, &s.ReadyB, &phase, &wn,
		&rec.ScoreA, &rec.ScoreB, &rec.SubmittedA, &rec.SubmittedB,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ledgerv1.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}

	amount, err := ledgerv1.ParseAmount(stake)
	if err != nil {
		return nil, fmt.Errorf("session %d: %w", id, err)
	}
	s.ID = models.SessionID(id)
	s.ParticipantA = models.ParticipantID(a)
	s.ParticipantB = models.ParticipantID(b)
	s.Stake = amount
	s.Phase = models.RemotePhase(phase)
	s.Winner = models.ParticipantID(wn)
	rec.Session = &s
	return &rec, nil
}
