// Package gateway describes the hosted backend the journaling core talks to:
// authentication plus row-level CRUD for journals and entries. The core treats
// it as a black box; internal/client is the HTTP implementation.
package gateway

import (
	"context"
	"time"

	"jotter/internal/models"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

// AuthResult is what sign-in and sign-up return. User is nil when the account
// authenticated but has no profile record.
type AuthResult struct {
	User  *models.User
	Token string
}

type NewJournal struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Icon   string `json:"icon,omitempty"`
}

// JournalPatch holds optional fields; nil means unchanged.
type JournalPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
	Icon  *string `json:"icon,omitempty"`
}

type NewEntry struct {
	UserID    string `json:"user_id"`
	JournalID string `json:"journal_id"`
	EntryDate string `json:"entry_date"`
	Content   string `json:"content"`
}

type EntryPatch struct {
	JournalID *string `json:"journal_id,omitempty"`
	EntryDate *string `json:"entry_date,omitempty"`
	Content   *string `json:"content,omitempty"`
	Archived  *bool   `json:"archived,omitempty"`
}

type Auth interface {
	SignIn(ctx context.Context, c Credentials) (AuthResult, error)
	SignUp(ctx context.Context, r Registration) (AuthResult, error)
	// CurrentUser returns nil, nil when there is no persisted session.
	CurrentUser(ctx context.Context) (*models.User, error)
	SignOut(ctx context.Context) error
}

type Journals interface {
	ListJournals(ctx context.Context, userID string) ([]models.Journal, error)
	CreateJournal(ctx context.Context, j NewJournal) (models.Journal, error)
	UpdateJournal(ctx context.Context, id string, p JournalPatch) (models.Journal, error)
	// DeleteJournal removes the journal and, irreversibly, all of its entries.
	DeleteJournal(ctx context.Context, id string) error
}

type Entries interface {
	// ListEntries returns every entry of the user, trashed ones included.
	ListEntries(ctx context.Context, userID string) ([]models.Entry, error)
	CreateEntry(ctx context.Context, e NewEntry) (models.Entry, error)
	UpdateEntry(ctx context.Context, id string, p EntryPatch) (models.Entry, error)
	TrashEntry(ctx context.Context, id string, at time.Time) (models.Entry, error)
	RecoverEntry(ctx context.Context, id string) (models.Entry, error)
	PurgeEntry(ctx context.Context, id string) error
}

// Data is the persistence half of the gateway used by the journal store.
type Data interface {
	Journals
	Entries
}

type Gateway interface {
	Auth
	Data
}
