package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/db"
	"github.com/sells-group/outreach-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const leadColumns = `id, phone, name, message, wa_link, status, created_at`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	phone      TEXT NOT NULL,
	name       TEXT,
	message    TEXT,
	wa_link    TEXT,
	status     TEXT NOT NULL DEFAULT 'unsent' CHECK (status IN ('unsent', 'sent')),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK ((message IS NULL) = (wa_link IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_pending ON leads(created_at) WHERE message IS NULL AND status = 'unsent';
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) InsertLead(ctx context.Context, phone string, name *string, status model.LeadStatus) (*model.Lead, error) {
	if err := validateInsert(phone, status); err != nil {
		return nil, err
	}

	lead := &model.Lead{
		ID:        uuid.New().String(),
		Phone:     phone,
		Name:      name,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO leads (id, phone, name, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		lead.ID, lead.Phone, lead.Name, string(lead.Status), lead.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return lead, nil
}

func (s *PostgresStore) UpdateLead(ctx context.Context, id string, upd LeadUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	var sets []string
	var args []any
	argIdx := 1

	if upd.Message != nil {
		sets = append(sets, fmt.Sprintf(`message = $%d`, argIdx), fmt.Sprintf(`wa_link = $%d`, argIdx+1))
		args = append(args, *upd.Message, *upd.WALink)
		argIdx += 2
	}
	if upd.Status != nil {
		sets = append(sets, fmt.Sprintf(`status = $%d`, argIdx))
		args = append(args, string(*upd.Status))
		argIdx++
	}

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $%d`, strings.Join(sets, ", "), argIdx)
	args = append(args, id)
	if upd.OnlyIfNoMessage {
		query += ` AND message IS NULL`
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotUpdated
	}
	return nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := scanLead(s.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return lead, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query += fmt.Sprintf(` AND (phone LIKE $%d OR name ILIKE $%d)`, argIdx, argIdx)
		args = append(args, likePattern(search))
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id DESC`

	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	return s.queryLeads(ctx, "list leads", query, args...)
}

func (s *PostgresStore) PendingLeads(ctx context.Context) ([]model.Lead, error) {
	return s.queryLeads(ctx, "pending leads",
		`SELECT `+leadColumns+` FROM leads WHERE message IS NULL AND status = 'unsent' ORDER BY created_at ASC, id ASC`,
	)
}

func (s *PostgresStore) LeadStats(ctx context.Context) (*model.LeadStats, error) {
	var st model.LeadStats
	err := s.pool.QueryRow(ctx, `SELECT
		count(*),
		count(*) FILTER (WHERE status = 'sent'),
		count(*) FILTER (WHERE status = 'unsent'),
		count(message)
		FROM leads`,
	).Scan(&st.Total, &st.Sent, &st.Unsent, &st.WithMessage)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: lead stats")
	}
	return &st, nil
}

func (s *PostgresStore) queryLeads(ctx context.Context, op, query string, args ...any) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: %s", op)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrapf(rows.Err(), "postgres: %s iterate", op)
}
