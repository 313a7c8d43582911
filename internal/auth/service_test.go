package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

// fakeTOTP accepts exactly one code for one secret.
type fakeTOTP struct {
	secret string
	code   string
}

func (f *fakeTOTP) Verify(secret, code string) bool {
	return secret == f.secret && code == f.code
}

func (f *fakeTOTP) Generate(string) (string, string, string, error) {
	return f.secret, "otpauth://totp/test", "", nil
}

func newAuthService(store *fakeStore, notifier *fakeNotifier, totp TOTPVerifier) *AuthService {
	return &AuthService{
		Store:               store,
		Hasher:              &BcryptHasher{Cost: bcrypt.MinCost},
		Codes:               newTwoFactorService(store, notifier),
		TOTP:                totp,
		Tokens:              NewTokenCodec("test-secret"),
		SessionTTL:          24 * time.Hour,
		TwoFactorSessionTTL: time.Hour,
	}
}

func registeredUser(t *testing.T, store *fakeStore, email, password string) *User {
	t.Helper()
	hash, err := (&BcryptHasher{Cost: bcrypt.MinCost}).Hash(password)
	require.NoError(t, err)
	return store.addUser(&User{
		Email:            email,
		PasswordHash:     hash,
		Active:           true,
		InvitationStatus: InvitationRegistered,
	})
}

func TestLoginMintsSessionAndStampsLastLogin(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store, &fakeNotifier{}, &fakeTOTP{})
	user := registeredUser(t, store, "pharmacist@example.com", "Correct-Horse1")

	result, err := svc.Login(context.Background(), "pharmacist@example.com", "Correct-Horse1")
	require.NoError(t, err)
	assert.False(t, result.RequiresTwoFactor)
	assert.NotEmpty(t, result.Token)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), result.ExpiresAt, 5*time.Second)

	subject, err := svc.Tokens.Decode(result.Token, PurposeSession)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)

	stored, _ := store.FindByID(context.Background(), user.ID)
	assert.NotNil(t, stored.LastLogin)
}

func TestLoginHidesWhetherAccountExists(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store, &fakeNotifier{}, &fakeTOTP{})
	registeredUser(t, store, "known@example.com", "Correct-Horse1")

	_, errUnknown := svc.Login(context.Background(), "unknown@example.com", "whatever")
	_, errWrongPw := svc.Login(context.Background(), "known@example.com", "wrong-password")

	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.ErrorIs(t, errWrongPw, ErrInvalidCredentials)
	assert.Equal(t, errUnknown, errWrongPw)
}

func TestLoginRejectsDisabledAccount(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store, &fakeNotifier{}, &fakeTOTP{})
	user := registeredUser(t, store, "gone@example.com", "Correct-Horse1")
	store.users[user.ID].Active = false

	_, err := svc.Login(context.Background(), "gone@example.com", "Correct-Horse1")
	assert.ErrorIs(t, err, ErrAccountDisabled)
}

func TestLoginWithTwoFactorWithholdsToken(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	svc := newAuthService(store, notifier, &fakeTOTP{})
	user := registeredUser(t, store, "careful@example.com", "Correct-Horse1")
	store.users[user.ID].TwoFactorEnabled = true
	method := ChannelEmail
	store.users[user.ID].TwoFactorMethod = &method

	result, err := svc.Login(context.Background(), "careful@example.com", "Correct-Horse1")
	require.NoError(t, err)
	assert.True(t, result.RequiresTwoFactor)
	assert.Empty(t, result.Token)

	// Second step: deliver a code and trade it for a session with the
	// shorter post-2FA validity.
	_, err = svc.Codes.Issue(context.Background(), "en", user.ID, ChannelEmail)
	require.NoError(t, err)

	final, err := svc.CompleteTwoFactorLogin(context.Background(), user.ID, notifier.lastCode().Code)
	require.NoError(t, err)
	assert.NotEmpty(t, final.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), final.ExpiresAt, 5*time.Second)

	// The delivered code is spent.
	_, err = svc.CompleteTwoFactorLogin(context.Background(), user.ID, notifier.lastCode().Code)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestCompleteTwoFactorLoginWithAuthenticatorApp(t *testing.T) {
	store := newFakeStore()
	totp := &fakeTOTP{secret: "JBSWY3DPEHPK3PXP", code: "123456"}
	svc := newAuthService(store, &fakeNotifier{}, totp)

	user := registeredUser(t, store, "app@example.com", "Correct-Horse1")
	store.users[user.ID].TwoFactorEnabled = true
	method := ChannelApp
	store.users[user.ID].TwoFactorMethod = &method
	store.users[user.ID].TwoFactorSecret = &totp.secret

	_, err := svc.CompleteTwoFactorLogin(context.Background(), user.ID, "654321")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	result, err := svc.CompleteTwoFactorLogin(context.Background(), user.ID, "123456")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
}

func TestCompleteTwoFactorLoginRejectsIneligibleUsers(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store, &fakeNotifier{}, &fakeTOTP{})

	_, err := svc.CompleteTwoFactorLogin(context.Background(), "no-such-user", "123456")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)

	// 2FA disabled: the second step does not exist for this user.
	plain := registeredUser(t, store, "plain@example.com", "Correct-Horse1")
	_, err = svc.CompleteTwoFactorLogin(context.Background(), plain.ID, "123456")
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestAuthorizeRefetchesUser(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store, &fakeNotifier{}, &fakeTOTP{})
	user := registeredUser(t, store, "steady@example.com", "Correct-Horse1")

	result, err := svc.Login(context.Background(), "steady@example.com", "Correct-Horse1")
	require.NoError(t, err)

	got, err := svc.Authorize(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	// Deactivation revokes access immediately, valid token or not.
	store.users[user.ID].Active = false
	_, err = svc.Authorize(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrAccountDisabled)

	// A deleted row behaves like a bad token.
	require.NoError(t, store.DeleteUser(context.Background(), user.ID))
	_, err = svc.Authorize(context.Background(), result.Token)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}

func TestAuthorizeRejectsExpiredToken(t *testing.T) {
	store := newFakeStore()
	svc := newAuthService(store, &fakeNotifier{}, &fakeTOTP{})
	user := registeredUser(t, store, "slow@example.com", "Correct-Horse1")

	token, err := svc.Tokens.Mint(user.ID, PurposeSession, -time.Minute)
	require.NoError(t, err)

	_, err = svc.Authorize(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidOrExpiredToken)
}
