package services

import (
	"strings"

	"jotter/internal/crypto"
	"jotter/internal/models"
)

// EncryptionService seals the columns that hold user-written or identifying
// text: account and profile email, entry content.
type EncryptionService struct {
	crypto *crypto.Sealer
}

func NewEncryptionService(encryptionKey, blindIndexKey []byte) (*EncryptionService, error) {
	sealer, err := crypto.NewSealer(encryptionKey, blindIndexKey)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{crypto: sealer}, nil
}

// NormalizeEmail is applied before both sealing and indexing so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *EncryptionService) EmailBlindIndex(email string) string {
	return s.crypto.BlindIndex(NormalizeEmail(email))
}

// SealAccount replaces the plaintext email with its ciphertext and fills the
// blind index.
func (s *EncryptionService) SealAccount(a *models.Account) error {
	email := NormalizeEmail(a.Email)
	sealed, err := s.crypto.Seal(email)
	if err != nil {
		return err
	}
	a.Email = sealed
	a.EmailBlindIndex = s.crypto.BlindIndex(email)
	return nil
}

func (s *EncryptionService) OpenAccountEmail(a models.Account) (string, error) {
	return s.crypto.Open(a.Email)
}

func (s *EncryptionService) SealUser(u *models.User) error {
	sealed, err := s.crypto.Seal(u.Email)
	if err != nil {
		return err
	}
	u.Email = sealed
	return nil
}

func (s *EncryptionService) OpenUser(u *models.User) error {
	plain, err := s.crypto.Open(u.Email)
	if err != nil {
		return err
	}
	u.Email = plain
	return nil
}

func (s *EncryptionService) SealEntry(r *models.EntryRecord) error {
	sealed, err := s.crypto.Seal(r.Content)
	if err != nil {
		return err
	}
	r.Content = sealed
	return nil
}

func (s *EncryptionService) OpenEntry(r *models.EntryRecord) error {
	plain, err := s.crypto.Open(r.Content)
	if err != nil {
		return err
	}
	r.Content = plain
	return nil
}
