package auth

import "time"

// Invitation lifecycle states. A user moves none -> invited -> registered;
// expiry is checked lazily against InvitationExpiresAt, never stored.
const (
	InvitationNone       = "none"
	InvitationInvited    = "invited"
	InvitationRegistered = "registered"
)

// Delivery channels for verification codes and invitations.
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
	// ChannelApp is an authenticator app (TOTP); nothing is delivered.
	ChannelApp = "app"
)

type User struct {
	ID               string
	Email            string
	Phone            *string
	FirstName        *string
	LastName         *string
	PasswordHash     string
	Active           bool
	TwoFactorEnabled bool
	TwoFactorMethod  *string
	TwoFactorSecret  *string

	// InvitationToken holds the sha256 digest of the opaque invite secret.
	// Invariant: non-nil exactly while InvitationStatus == InvitationInvited.
	InvitationStatus    string
	InvitationToken     *string
	InvitationSentAt    *time.Time
	InvitationExpiresAt *time.Time
	InvitedBy           *string

	RegistrationCompletedAt *time.Time
	LastLogin               *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// FullName is used in outbound messages; falls back to the email address.
func (u *User) FullName() string {
	switch {
	case u.FirstName != nil && u.LastName != nil:
		return *u.FirstName + " " + *u.LastName
	case u.FirstName != nil:
		return *u.FirstName
	default:
		return u.Email
	}
}

// VerificationCode is a short-lived single-use 2FA code. At most one live
// row exists per user; issuing a new code supersedes the previous one.
type VerificationCode struct {
	ID             string
	UserID         string
	Code           string // sha256 digest of the 6-digit code
	DeliveryMethod string
	ExpiresAt      time.Time
	Used           bool
	CreatedAt      time.Time
}

// InviteProfile carries the profile fields captured when a worker is
// invited. Every field is written by an explicit column list; none of them
// can touch status or invitation columns.
type InviteProfile struct {
	FirstName string
	LastName  string
	Phone     *string
}
