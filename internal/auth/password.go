package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/daretna/daretna/internal/models"
	"github.com/daretna/daretna/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// UserStorage defines the persistence operations the authenticator needs.
// Keeps the authenticator independent of the full storage.Store surface.
type UserStorage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByContact(ctx context.Context, identifier string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
}

// Ensure PasswordAuthenticator implements Authenticator
var _ Authenticator = (*PasswordAuthenticator)(nil)

// PasswordAuthenticator implements password-based authentication using bcrypt.
type PasswordAuthenticator struct {
	storage UserStorage
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(storage UserStorage) *PasswordAuthenticator {
	return &PasswordAuthenticator{storage: storage}
}

// ValidateCredential checks if the password meets minimum requirements.
func (a *PasswordAuthenticator) ValidateCredential(credential string) error {
	if len(credential) < 8 {
		return ErrWeakPassword
	}
	return nil
}

// Register creates a new registered user with a hashed password. When an
// Invited placeholder matches the email or phone, the placeholder is
// claimed: it keeps its ID and payment history and becomes a registered
// account.
func (a *PasswordAuthenticator) Register(ctx context.Context, name, email, phone, credential string) (*models.User, error) {
	if err := a.ValidateCredential(credential); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Claim a pending invitation when one matches this contact.
	for _, identifier := range []string{email, phone} {
		if identifier == "" {
			continue
		}
		existing, err := a.storage.GetUserByContact(ctx, identifier)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("failed to look up existing account: %w", err)
		}
		if existing.Kind != models.KindInvited {
			return nil, ErrEmailExists
		}

		existing.Name = name
		existing.Email = email
		existing.Phone = phone
		existing.Kind = models.KindRegistered
		existing.PasswordHash = string(hashedPassword)
		if err := a.storage.UpdateUser(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to claim invitation: %w", err)
		}
		return existing, nil
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		Phone:        phone,
		Role:         models.RoleFree,
		Kind:         models.KindRegistered,
		PasswordHash: string(hashedPassword),
	}
	if err := a.storage.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Authenticate verifies the email and password, returning the user if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*models.User, error) {
	user, err := a.storage.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
