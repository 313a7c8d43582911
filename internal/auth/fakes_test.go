package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory credential store backing the service tests.
type fakeStore struct {
	users map[string]*User             // by ID
	codes map[string]*VerificationCode // by user ID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[string]*User{},
		codes: map[string]*VerificationCode{},
	}
}

func (f *fakeStore) addUser(u *User) *User {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(u.Email)
	if u.InvitationStatus == "" {
		u.InvitationStatus = InvitationNone
	}
	f.users[u.ID] = u
	return u
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) FindByID(_ context.Context, id string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	clone := *u
	return &clone, nil
}

func (f *fakeStore) FindByInvitationToken(_ context.Context, tokenDigest string) (*User, error) {
	for _, u := range f.users {
		if u.InvitationStatus == InvitationInvited &&
			u.InvitationToken != nil && *u.InvitationToken == tokenDigest {
			clone := *u
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CreateInvited(_ context.Context, email string, profile InviteProfile, passwordHash, tokenDigest string, sentAt, expiresAt time.Time, invitedBy string) (*User, error) {
	u := &User{
		ID:                  uuid.NewString(),
		Email:               strings.ToLower(email),
		Phone:               profile.Phone,
		FirstName:           &profile.FirstName,
		LastName:            &profile.LastName,
		PasswordHash:        passwordHash,
		InvitationStatus:    InvitationInvited,
		InvitationToken:     &tokenDigest,
		InvitationSentAt:    &sentAt,
		InvitationExpiresAt: &expiresAt,
		InvitedBy:           &invitedBy,
	}
	f.users[u.ID] = u
	clone := *u
	return &clone, nil
}

func (f *fakeStore) Reinvite(_ context.Context, userID, passwordHash, tokenDigest string, sentAt, expiresAt time.Time, invitedBy string) (*User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, errors.New("no such user")
	}
	u.PasswordHash = passwordHash
	u.Active = false
	u.InvitationStatus = InvitationInvited
	u.InvitationToken = &tokenDigest
	u.InvitationSentAt = &sentAt
	u.InvitationExpiresAt = &expiresAt
	u.InvitedBy = &invitedBy
	clone := *u
	return &clone, nil
}

func (f *fakeStore) RestoreInvitationState(_ context.Context, snapshot *User) error {
	u, ok := f.users[snapshot.ID]
	if !ok {
		return errors.New("no such user")
	}
	u.PasswordHash = snapshot.PasswordHash
	u.Active = snapshot.Active
	u.InvitationStatus = snapshot.InvitationStatus
	u.InvitationToken = snapshot.InvitationToken
	u.InvitationSentAt = snapshot.InvitationSentAt
	u.InvitationExpiresAt = snapshot.InvitationExpiresAt
	u.InvitedBy = snapshot.InvitedBy
	return nil
}

func (f *fakeStore) DeleteUser(_ context.Context, userID string) error {
	delete(f.users, userID)
	delete(f.codes, userID)
	return nil
}

func (f *fakeStore) CompleteRegistration(_ context.Context, userID, passwordHash string, phone *string) (*User, error) {
	u, ok := f.users[userID]
	if !ok || u.InvitationStatus != InvitationInvited {
		return nil, nil
	}
	now := time.Now()
	u.PasswordHash = passwordHash
	if phone != nil {
		u.Phone = phone
	}
	u.Active = true
	u.InvitationStatus = InvitationRegistered
	u.InvitationToken = nil
	u.InvitationSentAt = nil
	u.InvitationExpiresAt = nil
	u.InvitedBy = nil
	u.RegistrationCompletedAt = &now
	clone := *u
	return &clone, nil
}

func (f *fakeStore) SetLastLogin(_ context.Context, userID string) error {
	u, ok := f.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	now := time.Now()
	u.LastLogin = &now
	return nil
}

func (f *fakeStore) UpdateTwoFactorSecret(_ context.Context, userID, method string, secret *string) error {
	u, ok := f.users[userID]
	if !ok {
		return errors.New("no such user")
	}
	u.TwoFactorMethod = &method
	u.TwoFactorSecret = secret
	return nil
}

func (f *fakeStore) ReplaceCode(_ context.Context, code VerificationCode) error {
	f.codes[code.UserID] = &code
	return nil
}

func (f *fakeStore) LiveCodeForUser(_ context.Context, userID string) (*VerificationCode, error) {
	vc, ok := f.codes[userID]
	if !ok || vc.Used {
		return nil, nil
	}
	clone := *vc
	return &clone, nil
}

func (f *fakeStore) MarkCodeUsed(_ context.Context, codeID string) (bool, error) {
	for _, vc := range f.codes {
		if vc.ID == codeID && !vc.Used {
			vc.Used = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) DeleteCode(_ context.Context, userID string) error {
	delete(f.codes, userID)
	return nil
}

// checkInvitationInvariant fails the test when any row violates
// "token present exactly while invited".
func (f *fakeStore) checkInvitationInvariant(t *testing.T) {
	t.Helper()
	for _, u := range f.users {
		invited := u.InvitationStatus == InvitationInvited
		hasToken := u.InvitationToken != nil
		if invited != hasToken {
			t.Errorf("user %s: invitation_status=%s but token present=%v", u.Email, u.InvitationStatus, hasToken)
		}
	}
}

type deliveredInvitation struct {
	Email        string
	Token        string
	TempPassword string
	ExpiresAt    time.Time
}

type deliveredCode struct {
	Channel string
	Email   string
	Phone   *string
	Code    string
}

// fakeNotifier records deliveries and can be told to fail.
type fakeNotifier struct {
	failInvitations bool
	failCodes       bool
	invitations     []deliveredInvitation
	codes           []deliveredCode
}

func (f *fakeNotifier) DeliverInvitation(_ context.Context, _, email string, _ *string, _, token, tempPassword string, expiresAt time.Time) error {
	if f.failInvitations {
		return errors.New("gateway unavailable")
	}
	f.invitations = append(f.invitations, deliveredInvitation{
		Email: email, Token: token, TempPassword: tempPassword, ExpiresAt: expiresAt,
	})
	return nil
}

func (f *fakeNotifier) DeliverCode(_ context.Context, _, channel, email string, phone *string, code string, _ time.Duration) error {
	if f.failCodes {
		return errors.New("gateway unavailable")
	}
	f.codes = append(f.codes, deliveredCode{Channel: channel, Email: email, Phone: phone, Code: code})
	return nil
}

func (f *fakeNotifier) lastInvitation() deliveredInvitation {
	return f.invitations[len(f.invitations)-1]
}

func (f *fakeNotifier) lastCode() deliveredCode {
	return f.codes[len(f.codes)-1]
}
