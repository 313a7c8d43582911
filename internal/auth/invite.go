package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"
)

// InviteStore is the slice of the credential store the invitation
// lifecycle needs.
type InviteStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByInvitationToken(ctx context.Context, tokenDigest string) (*User, error)
	CreateInvited(ctx context.Context, email string, profile InviteProfile, passwordHash, tokenDigest string, sentAt, expiresAt time.Time, invitedBy string) (*User, error)
	Reinvite(ctx context.Context, userID, passwordHash, tokenDigest string, sentAt, expiresAt time.Time, invitedBy string) (*User, error)
	RestoreInvitationState(ctx context.Context, snapshot *User) error
	DeleteUser(ctx context.Context, userID string) error
	CompleteRegistration(ctx context.Context, userID, passwordHash string, phone *string) (*User, error)
}

// InviteNotifier delivers the invitation out of band.
type InviteNotifier interface {
	DeliverInvitation(ctx context.Context, locale, email string, phone *string, name, token, tempPassword string, expiresAt time.Time) error
}

// Invitation is what Invite hands back to the caller: the one and only
// plaintext copy of the token.
type Invitation struct {
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// InviteService owns the none -> invited -> registered state machine.
// Expired invitations keep their stored state; expiry is checked lazily
// wherever a token is presented.
type InviteService struct {
	Store      InviteStore
	Notifier   InviteNotifier
	Hasher     PasswordHasher
	Tokens     *TokenCodec
	TTL        time.Duration
	SessionTTL time.Duration
}

// Invite creates (or revives) a row in the invited state and delivers the
// token. The write and the send are one unit: the row is written first so
// the recipient can never hold a token for a row that does not exist, and
// compensated if delivery fails, so no invited row exists without a
// delivered message. No DB transaction stays open across the send.
func (s *InviteService) Invite(ctx context.Context, locale, email string, profile InviteProfile, invitedBy string) (*Invitation, error) {
	existing, err := s.Store.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invite: lookup %s: %w", email, err)
	}
	if existing != nil {
		if existing.InvitationStatus != InvitationNone || existing.Active {
			return nil, ErrConflict
		}
	}

	token, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("invite: token generation: %w", err)
	}
	tempPassword, err := randomToken(8)
	if err != nil {
		return nil, fmt.Errorf("invite: temp password generation: %w", err)
	}
	hashed, err := s.Hasher.Hash(tempPassword)
	if err != nil {
		return nil, fmt.Errorf("invite: hash temp password: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(s.TTL)
	digest := HashString(token)

	var user *User
	if existing == nil {
		user, err = s.Store.CreateInvited(ctx, email, profile, hashed, digest, now, expiresAt, invitedBy)
	} else {
		user, err = s.Store.Reinvite(ctx, existing.ID, hashed, digest, now, expiresAt, invitedBy)
	}
	if err != nil {
		return nil, fmt.Errorf("invite: store %s: %w", email, err)
	}

	if err := s.Notifier.DeliverInvitation(ctx, locale, user.Email, user.Phone, user.FullName(), token, tempPassword, expiresAt); err != nil {
		s.compensate(ctx, existing, user)
		log.Printf("invite: delivery to %s failed, write rolled back: %v", email, err)
		return nil, ErrDeliveryFailure
	}

	return &Invitation{UserID: user.ID, Token: token, ExpiresAt: expiresAt}, nil
}

// compensate undoes the tentative write after a failed delivery.
func (s *InviteService) compensate(ctx context.Context, prior, tentative *User) {
	var err error
	if prior == nil {
		err = s.Store.DeleteUser(ctx, tentative.ID)
	} else {
		err = s.Store.RestoreInvitationState(ctx, prior)
	}
	if err != nil {
		// The row stays invited with an undelivered token; it still expires
		// on its own and the address can be re-invited after that.
		log.Printf("invite: compensation for %s failed: %v", tentative.Email, err)
	}
}

// Validate checks a presented token without mutating anything. Unknown,
// consumed and expired tokens are deliberately indistinguishable.
func (s *InviteService) Validate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	user, err := s.Store.FindByInvitationToken(ctx, HashString(token))
	if err != nil {
		return nil, fmt.Errorf("invite: token lookup: %w", err)
	}
	if user == nil || user.InvitationExpiresAt == nil {
		return nil, ErrInvalidOrExpiredToken
	}
	if !time.Now().Before(*user.InvitationExpiresAt) {
		return nil, ErrInvalidOrExpiredToken
	}
	return user, nil
}

// Complete consumes the token: one atomic update moves the row to
// registered, nulls the token and activates the account, then a session
// token is minted. A second Complete with the same token fails.
func (s *InviteService) Complete(ctx context.Context, token, newPassword string, phone *string) (*User, string, error) {
	user, err := s.Validate(ctx, token)
	if err != nil {
		return nil, "", err
	}

	hashed, err := s.Hasher.Hash(newPassword)
	if err != nil {
		return nil, "", fmt.Errorf("complete: hash password: %w", err)
	}

	updated, err := s.Store.CompleteRegistration(ctx, user.ID, hashed, phone)
	if err != nil {
		return nil, "", fmt.Errorf("complete: update %s: %w", user.ID, err)
	}
	if updated == nil {
		// Lost a race with another completion of the same token.
		return nil, "", ErrInvalidOrExpiredToken
	}

	session, err := s.Tokens.Mint(updated.ID, PurposeSession, s.SessionTTL)
	if err != nil {
		return nil, "", fmt.Errorf("complete: mint session: %w", err)
	}
	return updated, session, nil
}

// ChangePassword sets the credential for an invited user identified by
// their invitation token and completes the registration. The token is
// required input: there is no "first invited row" shortcut.
func (s *InviteService) ChangePassword(ctx context.Context, token, newPassword string) (*User, error) {
	user, _, err := s.Complete(ctx, token, newPassword, nil)
	return user, err
}

func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
