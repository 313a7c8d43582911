package auth

import (
	"context"
	"fmt"
	"log"
	"time"
)

// UserStore is the slice of the credential store the auth service needs.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	SetLastLogin(ctx context.Context, userID string) error
}

// LoginResult carries either a minted session token or the
// requires-two-factor signal, never both.
type LoginResult struct {
	User              *User
	Token             string
	ExpiresAt         time.Time
	RequiresTwoFactor bool
}

// AuthService is the top-level orchestrator: login, two-factor completion
// and bearer-token authorization.
type AuthService struct {
	Store  UserStore
	Hasher PasswordHasher
	Codes  *TwoFactorService
	TOTP   TOTPVerifier
	Tokens *TokenCodec

	// SessionTTL is the direct-login validity; TwoFactorSessionTTL the
	// shorter post-2FA one. Both come from config, deliberately unmerged.
	SessionTTL          time.Duration
	TwoFactorSessionTTL time.Duration
}

// Login verifies credentials. Unknown address and wrong password produce
// the identical error, so responses cannot confirm whether an account
// exists. When 2FA is enabled no token is minted yet.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("login: lookup: %w", err)
	}
	if user == nil || !s.Hasher.Compare(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	if user.TwoFactorEnabled {
		return &LoginResult{User: user, RequiresTwoFactor: true}, nil
	}

	return s.establishSession(ctx, user, s.SessionTTL)
}

// CompleteTwoFactorLogin turns a verified code into a session. TOTP users
// verify against their authenticator secret; everyone else against the
// outstanding delivered code, which is consumed here.
func (s *AuthService) CompleteTwoFactorLogin(ctx context.Context, userID, code string) (*LoginResult, error) {
	user, err := s.Store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("2fa login: lookup %s: %w", userID, err)
	}
	if user == nil || !user.Active || !user.TwoFactorEnabled {
		return nil, ErrInvalidOrExpiredToken
	}

	if user.TwoFactorMethod != nil && *user.TwoFactorMethod == ChannelApp {
		if user.TwoFactorSecret == nil || !s.TOTP.Verify(*user.TwoFactorSecret, code) {
			return nil, ErrInvalidOrExpiredToken
		}
	} else if err := s.Codes.Verify(ctx, user.ID, code); err != nil {
		return nil, err
	}

	return s.establishSession(ctx, user, s.TwoFactorSessionTTL)
}

// Authorize validates a bearer token for a protected request. The user row
// is re-read every time: a deactivated account is rejected immediately
// even while its token is otherwise still valid, and this re-read is the
// only revocation mechanism stateless tokens allow.
func (s *AuthService) Authorize(ctx context.Context, token string) (*User, error) {
	subject, err := s.Tokens.Decode(token, PurposeSession)
	if err != nil {
		return nil, err
	}

	user, err := s.Store.FindByID(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("authorize: lookup %s: %w", subject, err)
	}
	if user == nil {
		return nil, ErrInvalidOrExpiredToken
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}
	return user, nil
}

func (s *AuthService) establishSession(ctx context.Context, user *User, ttl time.Duration) (*LoginResult, error) {
	token, err := s.Tokens.Mint(user.ID, PurposeSession, ttl)
	if err != nil {
		return nil, fmt.Errorf("login: mint session for %s: %w", user.ID, err)
	}
	if err := s.Store.SetLastLogin(ctx, user.ID); err != nil {
		log.Printf("login: last_login update for %s failed: %v", user.ID, err)
	}
	return &LoginResult{User: user, Token: token, ExpiresAt: time.Now().Add(ttl)}, nil
}
