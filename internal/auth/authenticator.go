package auth

import (
	"context"

	"github.com/daretna/daretna/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// This abstraction allows swapping between different auth methods (password,
// OTP, OAuth, etc.) without changing the HTTP layer.
type Authenticator interface {
	// Register creates a new user account with the given contact details
	// and credential. When an Invited placeholder exists for the email or
	// phone, registration claims it instead of creating a second account.
	Register(ctx context.Context, name, email, phone, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user
	// if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the
	// implementation's requirements.
	ValidateCredential(credential string) error
}
