package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"modernc.org/sqlite"

	"github.com/sells-group/outreach-cli/internal/model"
)

// SQLite's built-in lower() and LIKE fold ASCII only, so name search goes
// through fold_case on both sides.
func init() {
	if err := sqlite.RegisterDeterministicScalarFunction("fold_case", 1, sqliteFoldCase); err != nil {
		panic(eris.Wrap(err, "sqlite: register fold_case"))
	}
}

func sqliteFoldCase(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return foldCase(v), nil
	case []byte:
		return foldCase(string(v)), nil
	default:
		return v, nil
	}
}

// foldCase applies full Unicode case folding to NFC text.
func foldCase(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// One connection: SQLite has a single writer and pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id         TEXT PRIMARY KEY,
	phone      TEXT NOT NULL,
	name       TEXT,
	message    TEXT,
	wa_link    TEXT,
	status     TEXT NOT NULL DEFAULT 'unsent' CHECK (status IN ('unsent', 'sent')),
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	CHECK ((message IS NULL) = (wa_link IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertLead(ctx context.Context, phone string, name *string, status model.LeadStatus) (*model.Lead, error) {
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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, phone, name, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		lead.ID, lead.Phone, lead.Name, string(lead.Status), lead.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return lead, nil
}

func (s *SQLiteStore) UpdateLead(ctx context.Context, id string, upd LeadUpdate) error {
	if err := upd.Validate(); err != nil {
		return err
	}

	var sets []string
	var args []any
	if upd.Message != nil {
		sets = append(sets, "message = ?", "wa_link = ?")
		args = append(args, *upd.Message, *upd.WALink)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*upd.Status))
	}

	query := `UPDATE leads SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	args = append(args, id)
	if upd.OnlyIfNoMessage {
		query += ` AND message IS NULL`
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	return checkRowsAffected(res)
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	lead, err := scanLead(s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return lead, nil
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query += ` AND (phone LIKE ? ESCAPE '\' OR fold_case(name) LIKE ? ESCAPE '\')`
		args = append(args, likePattern(search), likePattern(foldCase(search)))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	return s.queryLeads(ctx, "list leads", query, args...)
}

func (s *SQLiteStore) PendingLeads(ctx context.Context) ([]model.Lead, error) {
	return s.queryLeads(ctx, "pending leads",
		`SELECT `+leadColumns+` FROM leads WHERE message IS NULL AND status = 'unsent' ORDER BY created_at ASC, rowid ASC`,
	)
}

func (s *SQLiteStore) LeadStats(ctx context.Context) (*model.LeadStats, error) {
	var st model.LeadStats
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN status = 'sent' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'unsent' THEN 1 ELSE 0 END), 0),
		COUNT(message)
		FROM leads`,
	).Scan(&st.Total, &st.Sent, &st.Unsent, &st.WithMessage)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: lead stats")
	}
	return &st, nil
}

func (s *SQLiteStore) queryLeads(ctx context.Context, op, query string, args ...any) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: %s", op)
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		leads = append(leads, *lead)
	}
	return leads, eris.Wrapf(rows.Err(), "sqlite: %s iterate", op)
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrNotUpdated
	}
	return nil
}
