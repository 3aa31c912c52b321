package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"jotter/internal/dates"
	"jotter/internal/gateway"
	"jotter/internal/journal"
	"jotter/internal/models"
	"jotter/internal/repository"
)

var (
	ErrNotFound        = repository.ErrNotFound
	ErrEntryTrashed    = errors.New("entry is in the trash")
	ErrEntryNotTrashed = errors.New("entry is not in the trash")
)

type JournalRepository interface {
	repository.Journals
	repository.Entries
}

// JournalService enforces ownership and the entry lifecycle on the server.
// Dates are validated against UTC today plus one day, since the server cannot
// know the writer's zone and no zone is more than a day ahead of UTC.
type JournalService struct {
	repo JournalRepository
	enc  *EncryptionService
	log  *zap.Logger
	now  func() time.Time
}

// NewJournalService wires the repository and sealer. A nil logger discards.
func NewJournalService(repo JournalRepository, enc *EncryptionService, log *zap.Logger) *JournalService {
	if log == nil {
		log = zap.NewNop()
	}
	return &JournalService{repo: repo, enc: enc, log: log, now: time.Now}
}

func (s *JournalService) latestDay() string {
	return dates.AddDays(dates.Today(s.now(), time.UTC), 1)
}

func (s *JournalService) ListJournals(ctx context.Context, userID string) ([]models.Journal, error) {
	return s.repo.ListJournals(ctx, userID)
}

func (s *JournalService) CreateJournal(ctx context.Context, userID string, in gateway.NewJournal) (models.Journal, error) {
	name, err := models.NormalizeJournalName(in.Name)
	if err != nil {
		return models.Journal{}, err
	}
	color, err := models.NormalizeColor(in.Color)
	if err != nil {
		return models.Journal{}, err
	}
	icon := strings.TrimSpace(in.Icon)
	if err := models.ValidateIcon(icon); err != nil {
		return models.Journal{}, err
	}
	return s.repo.CreateJournal(ctx, models.Journal{UserID: userID, Name: name, Color: color, Icon: icon})
}

func (s *JournalService) UpdateJournal(ctx context.Context, userID, id string, p gateway.JournalPatch) (models.Journal, error) {
	j, err := s.repo.Journal(ctx, userID, id)
	if err != nil {
		return models.Journal{}, err
	}
	if p.Name != nil {
		if j.Name, err = models.NormalizeJournalName(*p.Name); err != nil {
			return models.Journal{}, err
		}
	}
	if p.Color != nil {
		if j.Color, err = models.NormalizeColor(*p.Color); err != nil {
			return models.Journal{}, err
		}
	}
	if p.Icon != nil {
		icon := strings.TrimSpace(*p.Icon)
		if err := models.ValidateIcon(icon); err != nil {
			return models.Journal{}, err
		}
		j.Icon = icon
	}
	return s.repo.UpdateJournal(ctx, j)
}

func (s *JournalService) DeleteJournal(ctx context.Context, userID, id string) error {
	return s.repo.DeleteJournal(ctx, userID, id)
}

// ListEntries returns every entry of the user, trashed ones included, with
// content decrypted. Rows that fail to decrypt are logged and skipped.
func (s *JournalService) ListEntries(ctx context.Context, userID string) ([]models.Entry, error) {
	rows, err := s.repo.ListEntries(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]models.Entry, 0, len(rows))
	for _, r := range rows {
		if err := s.enc.OpenEntry(&r); err != nil {
			s.log.Warn("skipping undecryptable entry",
				zap.String("entry_id", r.ID), zap.String("user_id", userID), zap.Error(err))
			continue
		}
		out = append(out, r.Entry())
	}
	return out, nil
}

func (s *JournalService) entry(ctx context.Context, userID, id string) (models.Entry, error) {
	r, err := s.repo.Entry(ctx, userID, id)
	if err != nil {
		return models.Entry{}, err
	}
	if err := s.enc.OpenEntry(&r); err != nil {
		return models.Entry{}, fmt.Errorf("open entry: %w", err)
	}
	return r.Entry(), nil
}

func (s *JournalService) save(ctx context.Context, e models.Entry, create bool) (models.Entry, error) {
	plain := e.Content
	r := e.Record()
	if err := s.enc.SealEntry(&r); err != nil {
		return models.Entry{}, fmt.Errorf("seal entry: %w", err)
	}
	var err error
	if create {
		r, err = s.repo.CreateEntry(ctx, r)
	} else {
		r, err = s.repo.UpdateEntry(ctx, r)
	}
	if err != nil {
		return models.Entry{}, err
	}
	r.Content = plain
	return r.Entry(), nil
}

func (s *JournalService) CreateEntry(ctx context.Context, userID string, in gateway.NewEntry) (models.Entry, error) {
	if in.EntryDate == "" {
		in.EntryDate = dates.Today(s.now(), time.UTC)
	}
	if err := models.ValidateEntryDate(in.EntryDate, s.latestDay()); err != nil {
		return models.Entry{}, err
	}
	if err := models.ValidateContent(in.Content); err != nil {
		return models.Entry{}, err
	}
	if _, err := s.repo.Journal(ctx, userID, in.JournalID); err != nil {
		return models.Entry{}, err
	}
	return s.save(ctx, models.Entry{
		JournalID: in.JournalID,
		UserID:    userID,
		Content:   in.Content,
		EntryDate: in.EntryDate,
	}, true)
}

// UpdateEntry edits fields of a non-trashed entry. Archived toggles between
// Active and Archived.
func (s *JournalService) UpdateEntry(ctx context.Context, userID, id string, p gateway.EntryPatch) (models.Entry, error) {
	e, err := s.entry(ctx, userID, id)
	if err != nil {
		return models.Entry{}, err
	}
	if e.IsTrashed() {
		return models.Entry{}, ErrEntryTrashed
	}
	if p.Content != nil {
		if err := models.ValidateContent(*p.Content); err != nil {
			return models.Entry{}, err
		}
		e.Content = *p.Content
	}
	if p.EntryDate != nil {
		if err := models.ValidateEntryDate(*p.EntryDate, s.latestDay()); err != nil {
			return models.Entry{}, err
		}
		e.EntryDate = *p.EntryDate
	}
	if p.JournalID != nil && *p.JournalID != e.JournalID {
		if _, err := s.repo.Journal(ctx, userID, *p.JournalID); err != nil {
			return models.Entry{}, err
		}
		e.JournalID = *p.JournalID
	}
	if p.Archived != nil {
		if *p.Archived {
			e.Lifecycle, err = e.Lifecycle.Archive()
		} else {
			e.Lifecycle, err = e.Lifecycle.Unarchive()
		}
		if err != nil {
			return models.Entry{}, err
		}
	}
	return s.save(ctx, e, false)
}

// TrashEntry is idempotent: an entry already in the trash keeps its timestamp.
func (s *JournalService) TrashEntry(ctx context.Context, userID, id string, at time.Time) (models.Entry, error) {
	e, err := s.entry(ctx, userID, id)
	if err != nil {
		return models.Entry{}, err
	}
	if e.IsTrashed() {
		return e, nil
	}
	if at.IsZero() {
		at = s.now()
	}
	if e.Lifecycle, err = e.Lifecycle.Trash(at.UTC()); err != nil {
		return models.Entry{}, err
	}
	return s.save(ctx, e, false)
}

func (s *JournalService) RecoverEntry(ctx context.Context, userID, id string) (models.Entry, error) {
	e, err := s.entry(ctx, userID, id)
	if err != nil {
		return models.Entry{}, err
	}
	if !e.IsTrashed() {
		return e, nil
	}
	if e.Lifecycle, err = e.Lifecycle.Recover(); err != nil {
		return models.Entry{}, err
	}
	return s.save(ctx, e, false)
}

// PurgeEntry deletes a trashed entry for good.
func (s *JournalService) PurgeEntry(ctx context.Context, userID, id string) error {
	r, err := s.repo.Entry(ctx, userID, id)
	if err != nil {
		return err
	}
	if _, err := r.Entry().Lifecycle.Purge(); err != nil {
		return ErrEntryNotTrashed
	}
	return s.repo.DeleteEntry(ctx, userID, id)
}

// Stats computes the dashboard for today as seen in loc.
func (s *JournalService) Stats(ctx context.Context, userID string, loc *time.Location) (models.DashboardStats, error) {
	entries, err := s.ListEntries(ctx, userID)
	if err != nil {
		return models.DashboardStats{}, err
	}
	return journal.Dashboard(entries, dates.Today(s.now(), loc), 5), nil
}
