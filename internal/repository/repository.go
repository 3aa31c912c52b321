// Package repository persists accounts, profiles, journals and entries for the
// hosted backend. Values arrive already sealed; nothing here decrypts.
package repository

import (
	"context"
	"errors"

	"jotter/internal/models"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

type Accounts interface {
	// CreateAccount fills in ID and CreatedAt. A taken blind index is ErrConflict.
	CreateAccount(ctx context.Context, a *models.Account) error
	AccountByEmailIndex(ctx context.Context, blindIndex string) (models.Account, error)
	AccountByID(ctx context.Context, id string) (models.Account, error)
}

type Profiles interface {
	Profile(ctx context.Context, userID string) (models.User, error)
	// SaveProfile inserts or replaces the profile keyed by u.ID.
	SaveProfile(ctx context.Context, u models.User) (models.User, error)
}

// Journals and Entries are always scoped by owner; another user's row is
// reported as ErrNotFound.
type Journals interface {
	ListJournals(ctx context.Context, userID string) ([]models.Journal, error)
	Journal(ctx context.Context, userID, id string) (models.Journal, error)
	CreateJournal(ctx context.Context, j models.Journal) (models.Journal, error)
	UpdateJournal(ctx context.Context, j models.Journal) (models.Journal, error)
	// DeleteJournal cascades to every entry of the journal.
	DeleteJournal(ctx context.Context, userID, id string) error
}

type Entries interface {
	ListEntries(ctx context.Context, userID string) ([]models.EntryRecord, error)
	Entry(ctx context.Context, userID, id string) (models.EntryRecord, error)
	CreateEntry(ctx context.Context, r models.EntryRecord) (models.EntryRecord, error)
	UpdateEntry(ctx context.Context, r models.EntryRecord) (models.EntryRecord, error)
	DeleteEntry(ctx context.Context, userID, id string) error
}

type Repository interface {
	Accounts
	Profiles
	Journals
	Entries
}
