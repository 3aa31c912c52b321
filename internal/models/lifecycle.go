package models

import (
	"errors"
	"fmt"
	"time"
)

// TrashRetention is how long a trashed entry can be recovered before it is purged.
const TrashRetention = 30 * 24 * time.Hour

var ErrIllegalTransition = errors.New("illegal lifecycle transition")

type State int

const (
	StateActive State = iota
	StateArchived
	StateTrashed
	StatePurged
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateArchived:
		return "archived"
	case StateTrashed:
		return "trashed"
	case StatePurged:
		return "purged"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Lifecycle is the tagged state of an entry. The trash timestamp only exists
// while the entry is trashed, so archived-and-trashed cannot be expressed.
// The zero value is Active.
type Lifecycle struct {
	state     State
	trashedAt time.Time
}

func Active() Lifecycle   { return Lifecycle{state: StateActive} }
func Archived() Lifecycle { return Lifecycle{state: StateArchived} }

func Trashed(at time.Time) Lifecycle {
	return Lifecycle{state: StateTrashed, trashedAt: at}
}

// LifecycleFromColumns maps the stored (archived, deleted_at) pair. A non-nil
// deleted_at wins over the archived flag.
func LifecycleFromColumns(archived bool, deletedAt *time.Time) Lifecycle {
	switch {
	case deletedAt != nil:
		return Trashed(*deletedAt)
	case archived:
		return Archived()
	default:
		return Active()
	}
}

func (l Lifecycle) State() State { return l.state }

func (l Lifecycle) TrashedAt() (time.Time, bool) {
	if l.state != StateTrashed {
		return time.Time{}, false
	}
	return l.trashedAt, true
}

// Columns is the inverse of LifecycleFromColumns.
func (l Lifecycle) Columns() (archived bool, deletedAt *time.Time) {
	switch l.state {
	case StateArchived:
		return true, nil
	case StateTrashed:
		at := l.trashedAt
		return false, &at
	}
	return false, nil
}

func (l Lifecycle) Archive() (Lifecycle, error) {
	switch l.state {
	case StateActive, StateArchived:
		return Archived(), nil
	}
	return l, l.illegal("archive")
}

func (l Lifecycle) Unarchive() (Lifecycle, error) {
	switch l.state {
	case StateActive, StateArchived:
		return Active(), nil
	}
	return l, l.illegal("unarchive")
}

// Trash moves an active or archived entry to the trash. Trashing twice keeps
// the original timestamp.
func (l Lifecycle) Trash(at time.Time) (Lifecycle, error) {
	switch l.state {
	case StateActive, StateArchived:
		return Trashed(at), nil
	case StateTrashed:
		return l, nil
	}
	return l, l.illegal("trash")
}

// Recover always lands in Active, including entries archived before trashing.
func (l Lifecycle) Recover() (Lifecycle, error) {
	switch l.state {
	case StateTrashed, StateActive:
		return Active(), nil
	}
	return l, l.illegal("recover")
}

func (l Lifecycle) Purge() (Lifecycle, error) {
	if l.state != StateTrashed {
		return l, l.illegal("purge")
	}
	return Lifecycle{state: StatePurged}, nil
}

// Expired reports whether a trashed entry has outlived the retention window.
func (l Lifecycle) Expired(now time.Time) bool {
	return l.state == StateTrashed && now.Sub(l.trashedAt) > TrashRetention
}

// DaysRemaining is the number of whole days left before the entry is purged.
func (l Lifecycle) DaysRemaining(now time.Time) int {
	if l.state != StateTrashed {
		return 0
	}
	left := l.trashedAt.Add(TrashRetention).Sub(now)
	if left <= 0 {
		return 0
	}
	days := int(left / (24 * time.Hour))
	if left%(24*time.Hour) != 0 {
		days++
	}
	return days
}

func (l Lifecycle) illegal(op string) error {
	return fmt.Errorf("%w: cannot %s %s entry", ErrIllegalTransition, op, l.state)
}
