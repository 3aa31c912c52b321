// Package journal holds the signed-in user's journals and entries in memory.
//
// Writes go to the gateway first and touch memory only once the gateway has
// confirmed them. Reads, searches and statistics never call the gateway.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"jotter/internal/dates"
	"jotter/internal/gateway"
	"jotter/internal/models"
	"jotter/internal/observe"
)

var (
	ErrJournalNotFound = errors.New("journal not found")
	ErrJournalRequired = errors.New("journal is required")
	ErrEntryNotFound   = errors.New("entry not found")
	ErrEntryTrashed    = errors.New("entry is in the trash")
	ErrEntryNotTrashed = errors.New("entry is not in the trash")
	// ErrSuperseded is returned by LoadJournals when a newer load or a Reset
	// landed while it was in flight. Its result is discarded.
	ErrSuperseded = errors.New("superseded by a newer load")
)

// Snapshot is the reactive view consumers render from. Entries excludes
// trashed entries.
type Snapshot struct {
	UserID         string
	Journals       []models.Journal
	Entries        []models.Entry
	CurrentJournal *models.Journal
	IsLoading      bool
	Error          string
}

// Options configures a Store. Zero fields get defaults.
type Options struct {
	// Location decides what "today" is. Defaults to time.Local.
	Location *time.Location
	Now      func() time.Time
	// CallTimeout bounds every gateway call.
	CallTimeout     time.Duration
	BulkConcurrency int
	RecentLimit     int
}

// Store is safe for concurrent use. Build it with NewStore.
type Store struct {
	gw          gateway.Data
	log         *zap.Logger
	loc         *time.Location
	now         func() time.Time
	callTimeout time.Duration
	bulkLimit   int
	recentLimit int
	hub         observe.Hub[Snapshot]

	mu        sync.Mutex
	userID    string
	journals  []models.Journal
	entries   []models.Entry
	currentID string
	loading   int
	errMsg    string
	lastErr   error
	loadGen   uint64
}

// NewStore creates an empty store; call LoadJournals to fill it.
func NewStore(gw gateway.Data, log *zap.Logger, opts Options) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CallTimeout == 0 {
		opts.CallTimeout = 15 * time.Second
	}
	if opts.BulkConcurrency <= 0 {
		opts.BulkConcurrency = 4
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	return &Store{
		gw:          gw,
		log:         log.Named("journal"),
		loc:         opts.Location,
		now:         opts.Now,
		callTimeout: opts.CallTimeout,
		bulkLimit:   opts.BulkConcurrency,
		recentLimit: opts.RecentLimit,
	}
}

// Today is the current calendar day in the store's location.
func (s *Store) Today() string { return dates.Today(s.now(), s.loc) }

// ---- reactive state ----

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		UserID:    s.userID,
		Journals:  append([]models.Journal(nil), s.journals...),
		Entries:   s.filterLocked(func(e models.Entry) bool { return !e.IsTrashed() }),
		IsLoading: s.loading > 0,
		Error:     s.errMsg,
	}
	if j, ok := s.journalLocked(s.currentID); ok {
		snap.CurrentJournal = &j
	}
	return snap
}

// Subscribe calls fn with a fresh Snapshot after every change.
func (s *Store) Subscribe(fn func(Snapshot)) (cancel func()) { return s.hub.Subscribe(fn) }

func (s *Store) notify() { s.hub.Publish(s.Snapshot()) }

// Err returns the error of the last failed gateway call, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// ClearError drops the last failure message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg, s.lastErr = "", nil
	s.mu.Unlock()
	s.notify()
}

// Reset drops everything held for the current user, e.g. on logout. Loads
// still in flight are discarded when they return.
func (s *Store) Reset() {
	s.mu.Lock()
	s.loadGen++
	s.userID = ""
	s.journals, s.entries = nil, nil
	s.currentID = ""
	s.errMsg, s.lastErr = "", nil
	s.mu.Unlock()
	s.notify()
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	s.notify()
}

func (s *Store) end() {
	s.mu.Lock()
	s.loading--
	s.mu.Unlock()
	s.notify()
}

func (s *Store) fail(op string, err error) error {
	err = fmt.Errorf("%s: %w", op, err)
	s.log.Error("gateway call failed", zap.String("op", op), zap.Error(err))
	s.mu.Lock()
	s.lastErr = err
	s.errMsg = gateway.UserMessage(err)
	s.mu.Unlock()
	return err
}

func (s *Store) succeed() {
	s.mu.Lock()
	s.errMsg, s.lastErr = "", nil
	s.mu.Unlock()
}

func call[T any](ctx context.Context, s *Store, fn func(context.Context) (T, error)) (T, error) {
	return gateway.Call(ctx, s.callTimeout, fn)
}

// ---- loading ----

// LoadJournals replaces the in-memory collections with the user's journals and
// entries. On failure the previous collections stay as they were. Only the
// latest load applies; an older one that returns late gets ErrSuperseded.
func (s *Store) LoadJournals(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	s.begin()
	defer s.end()

	var journals []models.Journal
	var entries []models.Entry
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		journals, err = call(gctx, s, func(ctx context.Context) ([]models.Journal, error) {
			return s.gw.ListJournals(ctx, userID)
		})
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = call(gctx, s, func(ctx context.Context) ([]models.Entry, error) {
			return s.gw.ListEntries(ctx, userID)
		})
		return err
	})
	err := g.Wait()

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		s.log.Debug("dropping superseded load", zap.String("user_id", userID))
		return ErrSuperseded
	}
	if err != nil {
		s.mu.Unlock()
		return s.fail("load journals", err)
	}
	if s.userID != userID {
		s.currentID = ""
	}
	s.userID = userID
	s.journals = journals
	s.entries = entries
	if _, ok := s.journalLocked(s.currentID); !ok {
		s.currentID = ""
	}
	s.mu.Unlock()
	s.succeed()
	return nil
}

// ---- journals ----

// Journals returns a copy of the loaded journals.
func (s *Store) Journals() []models.Journal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Journal(nil), s.journals...)
}

// Journal looks up a loaded journal by id.
func (s *Store) Journal(id string) (models.Journal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journalLocked(id)
}

func (s *Store) journalLocked(id string) (models.Journal, bool) {
	if id == "" {
		return models.Journal{}, false
	}
	for _, j := range s.journals {
		if j.ID == id {
			return j, true
		}
	}
	return models.Journal{}, false
}

// SetCurrentJournal selects the journal views are scoped to. An empty id clears it.
func (s *Store) SetCurrentJournal(id string) error {
	s.mu.Lock()
	if id != "" {
		if _, ok := s.journalLocked(id); !ok {
			s.mu.Unlock()
			return ErrJournalNotFound
		}
	}
	s.currentID = id
	s.mu.Unlock()
	s.notify()
	return nil
}

// CurrentJournal is nil when no journal is selected.
func (s *Store) CurrentJournal() *models.Journal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.journalLocked(s.currentID); ok {
		return &j
	}
	return nil
}

// CreateJournal validates before anything reaches the gateway.
func (s *Store) CreateJournal(ctx context.Context, userID, name, color, icon string) (*models.Journal, error) {
	name, err := models.NormalizeJournalName(name)
	if err != nil {
		return nil, err
	}
	color, err = models.NormalizeColor(color)
	if err != nil {
		return nil, err
	}
	icon = strings.TrimSpace(icon)
	if err := models.ValidateIcon(icon); err != nil {
		return nil, err
	}

	s.begin()
	defer s.end()

	j, err := call(ctx, s, func(ctx context.Context) (models.Journal, error) {
		return s.gw.CreateJournal(ctx, gateway.NewJournal{UserID: userID, Name: name, Color: color, Icon: icon})
	})
	if err != nil {
		return nil, s.fail("create journal", err)
	}

	s.mu.Lock()
	s.journals = append(s.journals, j)
	s.mu.Unlock()
	s.succeed()
	return &j, nil
}

// UpdateJournal patches a journal and replaces the cached copy.
func (s *Store) UpdateJournal(ctx context.Context, id string, patch gateway.JournalPatch) (*models.Journal, error) {
	if _, ok := s.Journal(id); !ok {
		return nil, ErrJournalNotFound
	}
	if patch.Name != nil {
		name, err := models.NormalizeJournalName(*patch.Name)
		if err != nil {
			return nil, err
		}
		patch.Name = &name
	}
	if patch.Color != nil {
		color, err := models.NormalizeColor(*patch.Color)
		if err != nil {
			return nil, err
		}
		patch.Color = &color
	}
	if patch.Icon != nil {
		icon := strings.TrimSpace(*patch.Icon)
		if err := models.ValidateIcon(icon); err != nil {
			return nil, err
		}
		patch.Icon = &icon
	}

	s.begin()
	defer s.end()

	j, err := call(ctx, s, func(ctx context.Context) (models.Journal, error) {
		return s.gw.UpdateJournal(ctx, id, patch)
	})
	if err != nil {
		return nil, s.fail("update journal", err)
	}

	s.mu.Lock()
	for i := range s.journals {
		if s.journals[i].ID == id {
			s.journals[i] = j
		}
	}
	s.mu.Unlock()
	s.succeed()
	return &j, nil
}

// DeleteJournal removes the journal and all of its entries, trashed ones
// included. Unlike DeleteEntry this cannot be undone.
func (s *Store) DeleteJournal(ctx context.Context, id string) error {
	if _, ok := s.Journal(id); !ok {
		return ErrJournalNotFound
	}

	s.begin()
	defer s.end()

	if _, err := call(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.gw.DeleteJournal(ctx, id)
	}); err != nil {
		return s.fail("delete journal", err)
	}

	s.mu.Lock()
	journals := s.journals[:0:0]
	for _, j := range s.journals {
		if j.ID != id {
			journals = append(journals, j)
		}
	}
	s.journals = journals
	s.entries = s.filterLocked(func(e models.Entry) bool { return e.JournalID != id })
	if s.currentID == id {
		s.currentID = ""
	}
	s.mu.Unlock()
	s.succeed()
	return nil
}

// JournalEntryCounts maps journal id to its number of non-trashed entries.
func (s *Store) JournalEntryCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.journals))
	for _, j := range s.journals {
		out[j.ID] = 0
	}
	for _, e := range s.entries {
		if !e.IsTrashed() {
			out[e.JournalID]++
		}
	}
	return out
}

// ---- entries ----

func (s *Store) entryLocked(id string) (models.Entry, int) {
	for i, e := range s.entries {
		if e.ID == id {
			return e, i
		}
	}
	return models.Entry{}, -1
}

func (s *Store) entry(id string) (models.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, i := s.entryLocked(id)
	return e, i >= 0
}

// Entry returns any in-memory entry, trashed or not.
func (s *Store) Entry(id string) (models.Entry, bool) { return s.entry(id) }

func (s *Store) replaceEntry(e models.Entry) {
	s.mu.Lock()
	if _, i := s.entryLocked(e.ID); i >= 0 {
		s.entries[i] = e
	}
	s.mu.Unlock()
}

func (s *Store) removeEntry(id string) {
	s.mu.Lock()
	s.entries = s.filterLocked(func(e models.Entry) bool { return e.ID != id })
	s.mu.Unlock()
}

func (s *Store) filterLocked(keep func(models.Entry) bool) []models.Entry {
	out := make([]models.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// CreateJournalEntry rejects days after today (compared as YYYY-MM-DD in the
// store's location) and blank content. An empty date means today.
func (s *Store) CreateJournalEntry(ctx context.Context, in gateway.NewEntry) (*models.Entry, error) {
	if in.JournalID == "" {
		return nil, ErrJournalRequired
	}
	if in.EntryDate == "" {
		in.EntryDate = s.Today()
	}
	if err := models.ValidateEntryDate(in.EntryDate, s.Today()); err != nil {
		return nil, err
	}
	if err := models.ValidateContent(in.Content); err != nil {
		return nil, err
	}

	s.begin()
	defer s.end()

	e, err := call(ctx, s, func(ctx context.Context) (models.Entry, error) {
		return s.gw.CreateEntry(ctx, in)
	})
	if err != nil {
		return nil, s.fail("create entry", err)
	}

	s.mu.Lock()
	s.entries = append([]models.Entry{e}, s.entries...)
	s.mu.Unlock()
	s.succeed()
	return &e, nil
}

// UpdateEntry edits a non-trashed entry.
func (s *Store) UpdateEntry(ctx context.Context, id string, patch gateway.EntryPatch) (*models.Entry, error) {
	cur, ok := s.entry(id)
	if !ok {
		return nil, ErrEntryNotFound
	}
	if cur.IsTrashed() {
		return nil, ErrEntryTrashed
	}
	if patch.EntryDate != nil {
		if err := models.ValidateEntryDate(*patch.EntryDate, s.Today()); err != nil {
			return nil, err
		}
	}
	if patch.Content != nil {
		if err := models.ValidateContent(*patch.Content); err != nil {
			return nil, err
		}
	}
	if patch.JournalID != nil {
		if *patch.JournalID == "" {
			return nil, ErrJournalRequired
		}
	}

	s.begin()
	defer s.end()

	e, err := call(ctx, s, func(ctx context.Context) (models.Entry, error) {
		return s.gw.UpdateEntry(ctx, id, patch)
	})
	if err != nil {
		return nil, s.fail("update entry", err)
	}
	s.replaceEntry(e)
	s.succeed()
	return &e, nil
}

// ArchiveEntry hides an entry from the default lists without trashing it.
func (s *Store) ArchiveEntry(ctx context.Context, id string) (*models.Entry, error) {
	archived := true
	return s.UpdateEntry(ctx, id, gateway.EntryPatch{Archived: &archived})
}

// UnarchiveEntry clears the archived flag.
func (s *Store) UnarchiveEntry(ctx context.Context, id string) (*models.Entry, error) {
	archived := false
	return s.UpdateEntry(ctx, id, gateway.EntryPatch{Archived: &archived})
}

// DeleteEntry moves an entry to the trash. Trashing an already trashed entry
// does nothing and keeps its original timestamp.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	cur, ok := s.entry(id)
	if !ok {
		return ErrEntryNotFound
	}
	if cur.IsTrashed() {
		return nil
	}

	s.begin()
	defer s.end()

	at := s.now()
	e, err := call(ctx, s, func(ctx context.Context) (models.Entry, error) {
		return s.gw.TrashEntry(ctx, id, at)
	})
	if err != nil {
		return s.fail("delete entry", err)
	}
	if !e.IsTrashed() {
		e.Lifecycle, _ = cur.Lifecycle.Trash(at)
	}
	s.replaceEntry(e)
	s.succeed()
	return nil
}

// RecoverEntry brings a trashed entry back to Active. Entries that are not in
// the trash, including ones already purged, are left alone.
func (s *Store) RecoverEntry(ctx context.Context, id string) error {
	cur, ok := s.entry(id)
	if !ok || !cur.IsTrashed() {
		return nil
	}

	s.begin()
	defer s.end()

	e, err := call(ctx, s, func(ctx context.Context) (models.Entry, error) {
		return s.gw.RecoverEntry(ctx, id)
	})
	if err != nil {
		return s.fail("recover entry", err)
	}
	if e.IsTrashed() {
		e.Lifecycle, _ = cur.Lifecycle.Recover()
	}
	s.replaceEntry(e)
	s.succeed()
	return nil
}

// PermanentDeleteEntry purges a trashed entry. A gateway "not found" means it
// is already gone there, so it is dropped locally too.
func (s *Store) PermanentDeleteEntry(ctx context.Context, id string) error {
	cur, ok := s.entry(id)
	if !ok {
		return ErrEntryNotFound
	}
	if _, err := cur.Lifecycle.Purge(); err != nil {
		return ErrEntryNotTrashed
	}

	s.begin()
	defer s.end()

	_, err := call(ctx, s, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.gw.PurgeEntry(ctx, id)
	})
	if err != nil && !errors.Is(err, gateway.ErrNotFound) {
		return s.fail("purge entry", err)
	}
	s.removeEntry(id)
	s.succeed()
	return nil
}

// BulkResult reports a batch operation per id. Ids that succeeded stay
// applied even when others failed.
type BulkResult struct {
	Succeeded []string
	Failed    map[string]error
}

// OK reports whether every id succeeded.
func (r BulkResult) OK() bool { return len(r.Failed) == 0 }

// BulkDeleteEntries trashes each id independently.
func (s *Store) BulkDeleteEntries(ctx context.Context, ids []string) BulkResult {
	return s.bulk(ctx, ids, s.DeleteEntry)
}

// BulkRecoverEntries restores each id independently.
func (s *Store) BulkRecoverEntries(ctx context.Context, ids []string) BulkResult {
	return s.bulk(ctx, ids, s.RecoverEntry)
}

func (s *Store) bulk(ctx context.Context, ids []string, op func(context.Context, string) error) BulkResult {
	seen := make(map[string]bool, len(ids))
	uniq := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}

	errs := make([]error, len(uniq))
	var g errgroup.Group
	g.SetLimit(s.bulkLimit)
	for i, id := range uniq {
		g.Go(func() error {
			errs[i] = op(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	res := BulkResult{Failed: make(map[string]error)}
	var first error
	for i, id := range uniq {
		if errs[i] != nil {
			res.Failed[id] = errs[i]
			if first == nil {
				first = errs[i]
			}
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}
	if !res.OK() {
		// Siblings that succeeded cleared the error; restore the failure.
		err := fmt.Errorf("%d of %d failed: %w", len(res.Failed), len(uniq), first)
		s.log.Warn("bulk operation partially failed",
			zap.Int("succeeded", len(res.Succeeded)), zap.Int("failed", len(res.Failed)), zap.Error(err))
		s.mu.Lock()
		s.lastErr = err
		s.errMsg = gateway.UserMessage(err)
		s.mu.Unlock()
		s.notify()
	}
	return res
}

// TrashedEntries lists the user's trashed entries, most recently trashed first.
// An empty userID lists every trashed entry in memory.
func (s *Store) TrashedEntries(userID string) []models.Entry {
	s.mu.Lock()
	out := s.filterLocked(func(e models.Entry) bool {
		return e.IsTrashed() && (userID == "" || e.UserID == userID)
	})
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		ai, _ := out[i].Lifecycle.TrashedAt()
		aj, _ := out[j].Lifecycle.TrashedAt()
		return ai.After(aj)
	})
	return out
}

// DaysUntilPurge is how many days e can still be recovered.
func (s *Store) DaysUntilPurge(e models.Entry) int {
	return e.Lifecycle.DaysRemaining(s.now())
}

// CleanupOldTrashedEntries purges trashed entries past the retention window
// and returns how many were purged. Running it again purges nothing new.
func (s *Store) CleanupOldTrashedEntries(ctx context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	expired := s.filterLocked(func(e models.Entry) bool { return e.Lifecycle.Expired(now) })
	s.mu.Unlock()
	if len(expired) == 0 {
		return 0, nil
	}

	purged := 0
	var errs []error
	for _, e := range expired {
		if err := s.PermanentDeleteEntry(ctx, e.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		purged++
	}
	s.log.Info("trash retention sweep", zap.Int("purged", purged), zap.Int("failed", len(errs)))
	return purged, errors.Join(errs...)
}

// ---- queries ----

// EntryQuery narrows Entries. Zero values mean no restriction; archived
// entries are left out unless IncludeArchived is set.
type EntryQuery struct {
	JournalID       string
	From            string
	To              string
	IncludeArchived bool
}

// Entries returns non-trashed entries, newest entry date first.
func (s *Store) Entries(q EntryQuery) []models.Entry {
	s.mu.Lock()
	out := s.filterLocked(func(e models.Entry) bool {
		switch {
		case e.IsTrashed():
			return false
		case e.IsArchived() && !q.IncludeArchived:
			return false
		case q.JournalID != "" && e.JournalID != q.JournalID:
			return false
		case q.From != "" && e.EntryDate < q.From:
			return false
		case q.To != "" && e.EntryDate > q.To:
			return false
		}
		return true
	})
	s.mu.Unlock()
	newestFirst(out)
	return out
}

// EntriesOn returns every non-trashed entry written for day.
func (s *Store) EntriesOn(day string) []models.Entry {
	return s.Entries(EntryQuery{From: day, To: day, IncludeArchived: true})
}

// CalendarMonth counts non-trashed entries per day of the given month.
func (s *Store) CalendarMonth(year int, month time.Month) map[string]int {
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, e := range s.entries {
		if !e.IsTrashed() && strings.HasPrefix(e.EntryDate, prefix) {
			out[e.EntryDate]++
		}
	}
	return out
}

// SearchOptions narrows SearchEntries. Zero values match everything.
type SearchOptions struct {
	JournalID       string
	IncludeArchived bool
}

// SearchEntries matches query case-insensitively against the entry text.
// Results keep their in-memory order; there is no relevance ranking.
func (s *Store) SearchEntries(query string, opts SearchOptions) []models.Entry {
	needle := strings.ToLower(strings.TrimSpace(query))
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(func(e models.Entry) bool {
		switch {
		case e.IsTrashed():
			return false
		case e.IsArchived() && !opts.IncludeArchived:
			return false
		case opts.JournalID != "" && e.JournalID != opts.JournalID:
			return false
		}
		return strings.Contains(strings.ToLower(models.PlainText(e.Content)), needle)
	})
}

// ---- statistics ----

func (s *Store) allEntries() []models.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Entry(nil), s.entries...)
}

// CalculateWritingStreak is WritingStreak over the loaded entries.
func (s *Store) CalculateWritingStreak() int {
	return WritingStreak(s.allEntries(), s.Today())
}

// DashboardStats summarises the loaded entries.
func (s *Store) DashboardStats() models.DashboardStats {
	return Dashboard(s.allEntries(), s.Today(), s.recentLimit)
}
