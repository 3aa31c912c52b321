package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeJournalName(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"trimmed", "  Morning Pages ", "Morning Pages", nil},
		{"punctuation", "Dreams & Ideas (2024)!", "Dreams & Ideas (2024)!", nil},
		{"unicode letters", "Tagebuch für Ärger", "Tagebuch für Ärger", nil},
		{"empty", "", "", ErrJournalNameEmpty},
		{"blank", "   ", "", ErrJournalNameEmpty},
		{"exactly 50", strings.Repeat("a", 50), strings.Repeat("a", 50), nil},
		{"51", strings.Repeat("a", 51), "", ErrJournalNameTooLong},
		{"markup", "<b>bold</b>", "", ErrJournalNameCharset},
		{"emoji", "Travel ✈", "", ErrJournalNameCharset},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeJournalName(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeColor(t *testing.T) {
	c, err := NormalizeColor("")
	require.NoError(t, err)
	assert.Equal(t, DefaultColor, c)

	c, err = NormalizeColor("#a1b2c3")
	require.NoError(t, err)
	assert.Equal(t, "#A1B2C3", c)

	_, err = NormalizeColor("red")
	assert.ErrorIs(t, err, ErrInvalidColor)
}

func TestValidateContent(t *testing.T) {
	assert.ErrorIs(t, ValidateContent(""), ErrEmptyContent)
	assert.ErrorIs(t, ValidateContent(" \n\t"), ErrEmptyContent)
	assert.ErrorIs(t, ValidateContent("<p></p>"), ErrEmptyContent)
	assert.ErrorIs(t, ValidateContent("<p>&nbsp;</p>"), ErrEmptyContent)
	assert.NoError(t, ValidateContent("<p>Slept well</p>"))
}

func TestValidateEntryDate(t *testing.T) {
	assert.NoError(t, ValidateEntryDate("2024-06-01", "2024-06-01"))
	assert.NoError(t, ValidateEntryDate("2024-05-31", "2024-06-01"))
	assert.ErrorIs(t, ValidateEntryDate("2024-06-02", "2024-06-01"), ErrFutureDate)
	assert.ErrorIs(t, ValidateEntryDate("06/01/2024", "2024-06-01"), ErrInvalidDate)
}

func TestValidateIcon(t *testing.T) {
	assert.NoError(t, ValidateIcon(""))
	assert.NoError(t, ValidateIcon("📓"))
	assert.ErrorIs(t, ValidateIcon("far too long icon"), ErrInvalidIcon)
}
