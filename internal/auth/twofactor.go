package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

const codeLength = 6

// CodeStore is the slice of the credential store the verifier needs.
type CodeStore interface {
	FindByID(ctx context.Context, id string) (*User, error)
	ReplaceCode(ctx context.Context, code VerificationCode) error
	LiveCodeForUser(ctx context.Context, userID string) (*VerificationCode, error)
	MarkCodeUsed(ctx context.Context, codeID string) (bool, error)
	DeleteCode(ctx context.Context, userID string) error
}

// CodeNotifier delivers a code on a single requested channel.
type CodeNotifier interface {
	DeliverCode(ctx context.Context, locale, channel, email string, phone *string, code string, ttl time.Duration) error
}

// IssuedCode is what Issue reports back: never the code itself, only where
// it went and until when it is good.
type IssuedCode struct {
	Channel       string
	MaskedContact string
	ExpiresAt     time.Time
}

// TwoFactorService issues and verifies short-lived single-use codes. A
// user has at most one outstanding code; issuing supersedes, verifying
// consumes.
type TwoFactorService struct {
	Store    CodeStore
	Notifier CodeNotifier
	TTL      time.Duration
}

// Issue generates a fresh code, supersedes any prior one and dispatches it
// on the requested channel. A stored code whose delivery fails is removed
// again, mirroring the invitation contract.
func (s *TwoFactorService) Issue(ctx context.Context, locale, userID, channel string) (*IssuedCode, error) {
	user, err := s.Store.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("2fa issue: lookup %s: %w", userID, err)
	}
	if user == nil {
		return nil, ErrNotFound
	}

	var contact string
	switch channel {
	case ChannelSMS:
		if user.Phone == nil {
			return nil, ErrUnsupportedChannel
		}
		contact = maskPhone(*user.Phone)
	case ChannelEmail:
		contact = maskEmail(user.Email)
	default:
		return nil, ErrUnsupportedChannel
	}

	code, err := randomNumericCode(codeLength)
	if err != nil {
		return nil, fmt.Errorf("2fa issue: code generation: %w", err)
	}
	expiresAt := time.Now().Add(s.TTL)

	if err := s.Store.ReplaceCode(ctx, VerificationCode{
		ID:             uuid.NewString(),
		UserID:         user.ID,
		Code:           HashString(code),
		DeliveryMethod: channel,
		ExpiresAt:      expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("2fa issue: store code for %s: %w", userID, err)
	}

	if err := s.Notifier.DeliverCode(ctx, locale, channel, user.Email, user.Phone, code, s.TTL); err != nil {
		if delErr := s.Store.DeleteCode(ctx, user.ID); delErr != nil {
			log.Printf("2fa issue: code cleanup for %s failed: %v", userID, delErr)
		}
		log.Printf("2fa issue: delivery via %s to user %s failed: %v", channel, userID, err)
		return nil, ErrDeliveryFailure
	}

	return &IssuedCode{Channel: channel, MaskedContact: contact, ExpiresAt: expiresAt}, nil
}

// Verify consumes the user's outstanding code on success. Wrong, expired,
// unknown and replayed codes all come back as the same error.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string) error {
	vc, err := s.Store.LiveCodeForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("2fa verify: lookup code for %s: %w", userID, err)
	}
	if vc == nil || !time.Now().Before(vc.ExpiresAt) {
		return ErrInvalidOrExpiredToken
	}
	if HashString(code) != vc.Code {
		return ErrInvalidOrExpiredToken
	}

	consumed, err := s.Store.MarkCodeUsed(ctx, vc.ID)
	if err != nil {
		return fmt.Errorf("2fa verify: consume code %s: %w", vc.ID, err)
	}
	if !consumed {
		// Someone else spent it between the read and the update.
		return ErrInvalidOrExpiredToken
	}
	return nil
}

// randomNumericCode draws every digit uniformly from crypto/rand; no
// modulo bias, no sequential ranges.
func randomNumericCode(length int) (string, error) {
	var b strings.Builder
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func maskEmail(email string) string {
	at := strings.Index(email, "@")
	if at < 0 {
		return "***"
	}
	if at <= 1 {
		return "***" + email[at:]
	}
	return email[:1] + strings.Repeat("*", at-1) + email[at:]
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
