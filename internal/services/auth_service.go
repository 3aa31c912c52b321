package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"jotter/internal/cache"
	"jotter/internal/models"
	"jotter/internal/repository"
)

const (
	MinPasswordLen    = 6
	DisplayNameMaxLen = 80
)

var (
	ErrEmailRequired       = errors.New("email and password required")
	ErrWeakPassword        = errors.New("password must be at least 6 characters")
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrDisplayNameTooLong  = errors.New("display name must be at most 80 characters")
	ErrEmailTaken          = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInvalidToken        = errors.New("invalid token")
	ErrSessionExpired      = errors.New("session expired")
)

// Claims carries the account id as the subject and a random token id so a
// single token can be revoked.
type Claims struct {
	jwt.RegisteredClaims
}

func (c *Claims) UserID() string { return c.Subject }

type AuthResult struct {
	Token string
	// User is nil when the account has no profile yet.
	User *models.User
}

type AuthRepository interface {
	repository.Accounts
	repository.Profiles
}

type AuthService struct {
	repo    AuthRepository
	enc     *EncryptionService
	revoker cache.Revoker
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
}

func NewAuthService(repo AuthRepository, enc *EncryptionService, revoker cache.Revoker, secret []byte, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{repo: repo, enc: enc, revoker: revoker, secret: secret, ttl: ttl, now: time.Now}
}

func normalizeDisplayName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrDisplayNameRequired
	}
	if utf8.RuneCountInString(name) > DisplayNameMaxLen {
		return "", ErrDisplayNameTooLong
	}
	return name, nil
}

// SignUp creates the account and its profile. If the profile cannot be saved
// the account still exists and the result carries no User.
func (s *AuthService) SignUp(ctx context.Context, email, password, displayName string) (AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, ErrEmailRequired
	}
	if len(password) < MinPasswordLen {
		return AuthResult{}, ErrWeakPassword
	}
	displayName, err := normalizeDisplayName(displayName)
	if err != nil {
		return AuthResult{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	acct := models.Account{Email: email, PasswordHash: string(hashed)}
	if err := s.enc.SealAccount(&acct); err != nil {
		return AuthResult{}, fmt.Errorf("seal account: %w", err)
	}
	if err := s.repo.CreateAccount(ctx, &acct); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return AuthResult{}, ErrEmailTaken
		}
		return AuthResult{}, err
	}

	token, err := s.issue(acct.ID)
	if err != nil {
		return AuthResult{}, err
	}
	user, err := s.saveProfile(ctx, acct.ID, email, displayName)
	if err != nil {
		return AuthResult{Token: token}, nil
	}
	return AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, ErrEmailRequired
	}
	acct, err := s.repo.AccountByEmailIndex(ctx, s.enc.EmailBlindIndex(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.issue(acct.ID)
	if err != nil {
		return AuthResult{}, err
	}
	user, err := s.Me(ctx, acct.ID)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return AuthResult{Token: token}, nil
	case err != nil:
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.repo.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if err := s.enc.OpenUser(&u); err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	return &u, nil
}

// SaveProfile creates or renames the caller's profile. The email is copied
// from the account.
func (s *AuthService) SaveProfile(ctx context.Context, userID, displayName string) (*models.User, error) {
	displayName, err := normalizeDisplayName(displayName)
	if err != nil {
		return nil, err
	}
	acct, err := s.repo.AccountByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	email, err := s.enc.OpenAccountEmail(acct)
	if err != nil {
		return nil, fmt.Errorf("open account: %w", err)
	}
	return s.saveProfile(ctx, userID, email, displayName)
}

func (s *AuthService) saveProfile(ctx context.Context, userID, email, displayName string) (*models.User, error) {
	u := models.User{ID: userID, DisplayName: displayName, Email: email, Role: models.RoleUser}
	if err := s.enc.SealUser(&u); err != nil {
		return nil, err
	}
	saved, err := s.repo.SaveProfile(ctx, u)
	if err != nil {
		return nil, err
	}
	saved.Email = email
	return &saved, nil
}

// Logout revokes the token until it would have expired.
func (s *AuthService) Logout(ctx context.Context, c *Claims) error {
	if c == nil || c.ID == "" {
		return nil
	}
	ttl := time.Minute
	if c.ExpiresAt != nil {
		ttl = c.ExpiresAt.Sub(s.now())
	}
	return s.revoker.Revoke(ctx, c.ID, ttl)
}

func (s *AuthService) issue(userID string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies the signature and expiry and rejects revoked tokens.
// An expired or revoked token is ErrSessionExpired.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.ID != "" {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("revocation check: %w", err)
		}
		if revoked {
			return nil, ErrSessionExpired
		}
	}
	return claims, nil
}
