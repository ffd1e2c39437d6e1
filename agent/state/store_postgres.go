package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/scambait/honeynet/agent/contract"
)

// PostgresConfig configures the bun-backed session store.
type PostgresConfig struct {
	DSN         string        `envconfig:"DSN" split_words:"true" required:"true"`
	LockTimeout time.Duration `envconfig:"LOCK_TIMEOUT" split_words:"true" default:"5s"`
}

type sessionRow struct {
	bun.BaseModel `bun:"table:honeypot_sessions,alias:hs"`

	ID        string    `bun:"id,pk"`
	Payload   []byte    `bun:"payload,type:jsonb,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PostgresStore persists sessions as jsonb rows. Creation relies on
// ON CONFLICT DO NOTHING for the insert-if-absent guarantee. The
// per-session lock is in-process; see keyedLock.
type PostgresStore struct {
	db    *bun.DB
	locks *keyedLock
}

var _ Store = (*PostgresStore)(nil)
var _ Snapshotter = (*PostgresStore)(nil)

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &PostgresStore{
		db:    db,
		locks: newKeyedLock(cfg.LockTimeout),
	}, nil
}

// EnsureSchema creates the sessions table if missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.NewCreateTable().
		Model((*sessionRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}

func (p *PostgresStore) GetOrCreate(ctx context.Context, id string, now time.Time) (*Session, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %v", contract.ErrValidation, ErrEmptySessionID)
	}

	created := NewSession(id, now)
	payload, err := json.Marshal(created)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	row := &sessionRow{ID: id, Payload: payload, UpdatedAt: now.UTC()}
	if _, err := p.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	// Read back whichever copy won: ours or a concurrent creator's.
	return p.Snapshot(ctx, id)
}

func (p *PostgresStore) Save(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", contract.ErrValidation, err)
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	row := &sessionRow{ID: s.ID, Payload: payload, UpdatedAt: s.LastActivity}
	if _, err := p.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("payload = EXCLUDED.payload").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (p *PostgresStore) WithLock(ctx context.Context, id string, fn func(ctx context.Context) error) error {
	return p.locks.run(ctx, id, fn)
}

func (p *PostgresStore) Snapshot(ctx context.Context, id string) (*Session, error) {
	var row sessionRow
	err := p.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contract.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(row.Payload, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session loaded from store: %w", err)
	}
	return &s, nil
}
