package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the profile the session caches for the signed-in account.
type User struct {
	ID          string    `db:"id" json:"id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Email       string    `db:"email" json:"email"` // Encrypted in DB
	Role        Role      `db:"role" json:"role"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Account is the credential row behind a User. Never leaves the server.
type Account struct {
	ID              string    `db:"id"`
	Email           string    `db:"email"`
	EmailBlindIndex string    `db:"email_blind_index"`
	PasswordHash    string    `db:"password_hash"`
	CreatedAt       time.Time `db:"created_at"`
}

type Journal struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	Icon      string    `db:"icon" json:"icon,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Entry is a dated piece of content in exactly one journal.
type Entry struct {
	ID        string
	JournalID string
	UserID    string
	Content   string
	EntryDate string // YYYY-MM-DD
	CreatedAt time.Time
	UpdatedAt time.Time
	Lifecycle Lifecycle
}

func (e Entry) IsTrashed() bool  { return e.Lifecycle.State() == StateTrashed }
func (e Entry) IsArchived() bool { return e.Lifecycle.State() == StateArchived }

// EntryRecord is the flat row and wire form of an Entry.
type EntryRecord struct {
	ID        string     `db:"id" json:"id"`
	JournalID string     `db:"journal_id" json:"journal_id"`
	UserID    string     `db:"user_id" json:"user_id"`
	Content   string     `db:"content" json:"content"` // Encrypted in DB
	EntryDate string     `db:"entry_date" json:"entry_date"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
	Archived  bool       `db:"archived" json:"archived"`
	DeletedAt *time.Time `db:"deleted_at" json:"deleted_at"`
}

func (r EntryRecord) Entry() Entry {
	return Entry{
		ID:        r.ID,
		JournalID: r.JournalID,
		UserID:    r.UserID,
		Content:   r.Content,
		EntryDate: r.EntryDate,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Lifecycle: LifecycleFromColumns(r.Archived, r.DeletedAt),
	}
}

func (e Entry) Record() EntryRecord {
	archived, deletedAt := e.Lifecycle.Columns()
	return EntryRecord{
		ID:        e.ID,
		JournalID: e.JournalID,
		UserID:    e.UserID,
		Content:   e.Content,
		EntryDate: e.EntryDate,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
		Archived:  archived,
		DeletedAt: deletedAt,
	}
}

// DashboardStats is derived from the in-memory entries and never stored.
type DashboardStats struct {
	TotalEntries        int            `json:"total_entries"`
	CurrentStreak       int            `json:"current_streak"`
	LongestStreak       int            `json:"longest_streak"`
	ArchivedCount       int            `json:"archived_count"`
	TrashedCount        int            `json:"trashed_count"`
	MostRecentEntryDate string         `json:"most_recent_entry_date,omitempty"`
	HasTodayEntry       bool           `json:"has_today_entry"`
	EntriesThisWeek     int            `json:"entries_this_week"`
	EntriesThisMonth    int            `json:"entries_this_month"`
	DaysWritten         int            `json:"days_written"`
	RecentEntries       []Entry        `json:"-"`
	EntriesPerJournal   map[string]int `json:"entries_per_journal"`
	WeekdayDistribution [7]int         `json:"weekday_distribution"`
}
