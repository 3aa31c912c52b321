package models

import (
	"errors"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"jotter/internal/dates"
)

const (
	JournalNameMaxLen = 50
	JournalIconMaxLen = 8
	DefaultColor      = "#6366F1"
)

var (
	ErrJournalNameEmpty   = errors.New("journal name is required")
	ErrJournalNameTooLong = errors.New("journal name must be at most 50 characters")
	ErrJournalNameCharset = errors.New("journal name contains unsupported characters")
	ErrInvalidColor       = errors.New("color must be a #RRGGBB value")
	ErrInvalidIcon        = errors.New("icon must be at most 8 characters")
	ErrEmptyContent       = errors.New("entry content is required")
	ErrFutureDate         = errors.New("entry date cannot be in the future")
	ErrInvalidDate        = dates.ErrInvalidDay
)

var (
	journalNameRe = regexp.MustCompile(`^[\p{L}\p{N} _\-'.,&!?()]+$`)
	colorRe       = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	markupRe      = regexp.MustCompile(`<[^>]*>`)
)

// NormalizeJournalName trims the name and validates it.
func NormalizeJournalName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrJournalNameEmpty
	}
	if utf8.RuneCountInString(name) > JournalNameMaxLen {
		return "", ErrJournalNameTooLong
	}
	if !journalNameRe.MatchString(name) {
		return "", ErrJournalNameCharset
	}
	return name, nil
}

// NormalizeColor falls back to DefaultColor when color is empty.
func NormalizeColor(color string) (string, error) {
	color = strings.TrimSpace(color)
	if color == "" {
		return DefaultColor, nil
	}
	if !colorRe.MatchString(color) {
		return "", ErrInvalidColor
	}
	return strings.ToUpper(color), nil
}

func ValidateIcon(icon string) error {
	if utf8.RuneCountInString(icon) > JournalIconMaxLen {
		return ErrInvalidIcon
	}
	return nil
}

// PlainText strips editor markup and entities so "<p></p>" counts as empty.
func PlainText(content string) string {
	return strings.TrimSpace(html.UnescapeString(markupRe.ReplaceAllString(content, " ")))
}

func ValidateContent(content string) error {
	if PlainText(content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// ValidateEntryDate rejects malformed days and days after today.
func ValidateEntryDate(day, today string) error {
	if !dates.Valid(day) {
		return ErrInvalidDate
	}
	if dates.After(day, today) {
		return ErrFutureDate
	}
	return nil
}
