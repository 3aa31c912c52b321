package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"jotter/internal/models"
)

const uniqueViolation = "23505"

const entryColumns = `id, journal_id, user_id, content, to_char(entry_date, 'YYYY-MM-DD') AS entry_date,
	archived, deleted_at, created_at, updated_at`

type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return fmt.Errorf("error performing sql request: %w", err)
}

// validID screens out ids Postgres would reject as malformed UUIDs.
func validID(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

func (p *Postgres) CreateAccount(ctx context.Context, a *models.Account) error {
	a.ID = uuid.NewString()
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO accounts (id, email, email_blind_index, password_hash)
		 VALUES ($1, $2, $3, $4) RETURNING created_at`,
		a.ID, a.Email, a.EmailBlindIndex, a.PasswordHash).Scan(&a.CreatedAt)
	return translate(err)
}

func (p *Postgres) AccountByEmailIndex(ctx context.Context, blindIndex string) (models.Account, error) {
	var a models.Account
	err := p.db.GetContext(ctx, &a,
		`SELECT id, email, email_blind_index, password_hash, created_at FROM accounts WHERE email_blind_index=$1`,
		blindIndex)
	return a, translate(err)
}

func (p *Postgres) AccountByID(ctx context.Context, id string) (models.Account, error) {
	if !validID(id) {
		return models.Account{}, ErrNotFound
	}
	var a models.Account
	err := p.db.GetContext(ctx, &a,
		`SELECT id, email, email_blind_index, password_hash, created_at FROM accounts WHERE id=$1`, id)
	return a, translate(err)
}

func (p *Postgres) Profile(ctx context.Context, userID string) (models.User, error) {
	if !validID(userID) {
		return models.User{}, ErrNotFound
	}
	var u models.User
	err := p.db.GetContext(ctx, &u,
		`SELECT user_id AS id, display_name, email, role, created_at FROM profiles WHERE user_id=$1`, userID)
	return u, translate(err)
}

func (p *Postgres) SaveProfile(ctx context.Context, u models.User) (models.User, error) {
	if !validID(u.ID) {
		return models.User{}, ErrNotFound
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	err := p.db.GetContext(ctx, &u,
		`INSERT INTO profiles (user_id, display_name, email, role) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id) DO UPDATE SET display_name = EXCLUDED.display_name, email = EXCLUDED.email
		 RETURNING user_id AS id, display_name, email, role, created_at`,
		u.ID, u.DisplayName, u.Email, u.Role)
	return u, translate(err)
}

func (p *Postgres) ListJournals(ctx context.Context, userID string) ([]models.Journal, error) {
	if !validID(userID) {
		return nil, nil
	}
	out := []models.Journal{}
	err := p.db.SelectContext(ctx, &out,
		`SELECT id, user_id, name, color, icon, created_at FROM journals WHERE user_id=$1 ORDER BY created_at`, userID)
	return out, translate(err)
}

func (p *Postgres) Journal(ctx context.Context, userID, id string) (models.Journal, error) {
	if !validID(userID, id) {
		return models.Journal{}, ErrNotFound
	}
	var j models.Journal
	err := p.db.GetContext(ctx, &j,
		`SELECT id, user_id, name, color, icon, created_at FROM journals WHERE id=$1 AND user_id=$2`, id, userID)
	return j, translate(err)
}

func (p *Postgres) CreateJournal(ctx context.Context, j models.Journal) (models.Journal, error) {
	j.ID = uuid.NewString()
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO journals (id, user_id, name, color, icon) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		j.ID, j.UserID, j.Name, j.Color, j.Icon).Scan(&j.CreatedAt)
	return j, translate(err)
}

func (p *Postgres) UpdateJournal(ctx context.Context, j models.Journal) (models.Journal, error) {
	if !validID(j.UserID, j.ID) {
		return models.Journal{}, ErrNotFound
	}
	err := p.db.GetContext(ctx, &j,
		`UPDATE journals SET name=$1, color=$2, icon=$3 WHERE id=$4 AND user_id=$5
		 RETURNING id, user_id, name, color, icon, created_at`,
		j.Name, j.Color, j.Icon, j.ID, j.UserID)
	return j, translate(err)
}

func (p *Postgres) DeleteJournal(ctx context.Context, userID, id string) error {
	if !validID(userID, id) {
		return ErrNotFound
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM journals WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListEntries(ctx context.Context, userID string) ([]models.EntryRecord, error) {
	if !validID(userID) {
		return nil, nil
	}
	out := []models.EntryRecord{}
	err := p.db.SelectContext(ctx, &out,
		`SELECT `+entryColumns+` FROM entries WHERE user_id=$1 ORDER BY entry_date DESC, created_at DESC`, userID)
	return out, translate(err)
}

func (p *Postgres) Entry(ctx context.Context, userID, id string) (models.EntryRecord, error) {
	if !validID(userID, id) {
		return models.EntryRecord{}, ErrNotFound
	}
	var r models.EntryRecord
	err := p.db.GetContext(ctx, &r, `SELECT `+entryColumns+` FROM entries WHERE id=$1 AND user_id=$2`, id, userID)
	return r, translate(err)
}

func (p *Postgres) CreateEntry(ctx context.Context, r models.EntryRecord) (models.EntryRecord, error) {
	r.ID = uuid.NewString()
	err := p.db.GetContext(ctx, &r,
		`INSERT INTO entries (id, journal_id, user_id, content, entry_date, archived, deleted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+entryColumns,
		r.ID, r.JournalID, r.UserID, r.Content, r.EntryDate, r.Archived, r.DeletedAt)
	return r, translate(err)
}

func (p *Postgres) UpdateEntry(ctx context.Context, r models.EntryRecord) (models.EntryRecord, error) {
	if !validID(r.UserID, r.ID, r.JournalID) {
		return models.EntryRecord{}, ErrNotFound
	}
	err := p.db.GetContext(ctx, &r,
		`UPDATE entries SET journal_id=$1, content=$2, entry_date=$3, archived=$4, deleted_at=$5, updated_at=NOW()
		 WHERE id=$6 AND user_id=$7
		 RETURNING `+entryColumns,
		r.JournalID, r.Content, r.EntryDate, r.Archived, r.DeletedAt, r.ID, r.UserID)
	return r, translate(err)
}

func (p *Postgres) DeleteEntry(ctx context.Context, userID, id string) error {
	if !validID(userID, id) {
		return ErrNotFound
	}
	res, err := p.db.ExecContext(ctx, `DELETE FROM entries WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return translate(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
