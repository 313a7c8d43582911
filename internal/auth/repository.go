package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `
	id, email, phone, first_name, last_name, password_hash, active,
	two_factor_enabled, two_factor_method, two_factor_secret,
	invitation_status, invitation_token, invitation_sent_at,
	invitation_expires_at, invited_by, registration_completed_at,
	last_login, created_at, updated_at`

// UserRepository is the credential store. Every write enumerates its
// columns explicitly; no statement is built from caller-supplied field
// names, so request payloads can never reach status or invitation columns.
type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// FindByInvitationToken looks up by token digest. Only rows still in the
// invited state match; consumed tokens are nulled and can never match again.
func (r *UserRepository) FindByInvitationToken(ctx context.Context, tokenDigest string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE invitation_token = $1 AND invitation_status = $2
	`, tokenDigest, InvitationInvited)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

// CreateInvited inserts a fresh row in the invited state. The tentative row
// is deleted again if the invitation message cannot be delivered.
func (r *UserRepository) CreateInvited(ctx context.Context, email string, profile InviteProfile, passwordHash, tokenDigest string, sentAt, expiresAt time.Time, invitedBy string) (*User, error) {
	id := uuid.NewString()
	row := r.DB.QueryRow(ctx, `
		INSERT INTO users
		(id, email, phone, first_name, last_name, password_hash, active,
		 invitation_status, invitation_token, invitation_sent_at,
		 invitation_expires_at, invited_by)
		VALUES ($1, LOWER($2), $3, $4, $5, $6, FALSE, $7, $8, $9, $10, $11)
		RETURNING `+userColumns+`
	`, id, email, profile.Phone, profile.FirstName, profile.LastName,
		passwordHash, InvitationInvited, tokenDigest, sentAt, expiresAt, invitedBy)
	return scanUser(row)
}

// Reinvite moves an existing dormant row back into the invited state. The
// caller keeps a snapshot of the previous state for compensation.
func (r *UserRepository) Reinvite(ctx context.Context, userID, passwordHash, tokenDigest string, sentAt, expiresAt time.Time, invitedBy string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $1,
		    active = FALSE,
		    invitation_status = $2,
		    invitation_token = $3,
		    invitation_sent_at = $4,
		    invitation_expires_at = $5,
		    invited_by = $6,
		    updated_at = NOW()
		WHERE id = $7
		RETURNING ` + userColumns + `
	`, passwordHash, InvitationInvited, tokenDigest, sentAt, expiresAt, invitedBy, userID)
	return scanUser(row)
}

// RestoreInvitationState writes a previously captured snapshot back,
// undoing a tentative Reinvite after a failed notification send.
func (r *UserRepository) RestoreInvitationState(ctx context.Context, snapshot *User) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET password_hash = $1,
		    active = $2,
		    invitation_status = $3,
		    invitation_token = $4,
		    invitation_sent_at = $5,
		    invitation_expires_at = $6,
		    invited_by = $7,
		    updated_at = NOW()
		WHERE id = $8
	`, snapshot.PasswordHash, snapshot.Active, snapshot.InvitationStatus,
		snapshot.InvitationToken, snapshot.InvitationSentAt,
		snapshot.InvitationExpiresAt, snapshot.InvitedBy, snapshot.ID)
	return err
}

func (r *UserRepository) DeleteUser(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	return err
}

// CompleteRegistration is the single atomic transition invited->registered:
// the token is nulled, audit columns are stamped and the account activated
// in one statement, so no reader can observe a half-completed row. Returns
// nil when the row is no longer in the invited state.
func (r *UserRepository) CompleteRegistration(ctx context.Context, userID, passwordHash string, phone *string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $1,
		    phone = COALESCE($2, phone),
		    active = TRUE,
		    invitation_status = $3,
		    invitation_token = NULL,
		    invitation_sent_at = NULL,
		    invitation_expires_at = NULL,
		    invited_by = NULL,
		    registration_completed_at = NOW(),
		    updated_at = NOW()
		WHERE id = $4 AND invitation_status = $5
		RETURNING ` + userColumns + `
	`, passwordHash, phone, InvitationRegistered, userID, InvitationInvited)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return user, err
}

func (r *UserRepository) SetLastLogin(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users SET last_login = NOW(), updated_at = NOW() WHERE id = $1
	`, userID)
	return err
}

func (r *UserRepository) UpdateTwoFactorSecret(ctx context.Context, userID, method string, secret *string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET two_factor_method = $1, two_factor_secret = $2, updated_at = NOW()
		WHERE id = $3
	`, method, secret, userID)
	return err
}

func (r *UserRepository) EnableTwoFactor(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users SET two_factor_enabled = TRUE, updated_at = NOW() WHERE id = $1
	`, userID)
	return err
}

func (r *UserRepository) DisableTwoFactor(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE users
		SET two_factor_enabled = FALSE,
		    two_factor_method = NULL,
		    two_factor_secret = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, userID)
	return err
}

// ReplaceCode stores a fresh verification code, superseding any prior code
// for the user in the same statement. user_id is unique, so the upsert is
// what enforces the single-outstanding-code invariant even under
// concurrent issue calls; last writer wins.
func (r *UserRepository) ReplaceCode(ctx context.Context, code VerificationCode) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO verification_codes
		(id, user_id, code, delivery_method, expires_at, used)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (user_id) DO UPDATE
		SET id = EXCLUDED.id,
		    code = EXCLUDED.code,
		    delivery_method = EXCLUDED.delivery_method,
		    expires_at = EXCLUDED.expires_at,
		    used = FALSE,
		    created_at = NOW()
	`, code.ID, code.UserID, code.Code, code.DeliveryMethod, code.ExpiresAt)
	return err
}

func (r *UserRepository) LiveCodeForUser(ctx context.Context, userID string) (*VerificationCode, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, user_id, code, delivery_method, expires_at, used, created_at
		FROM verification_codes
		WHERE user_id = $1 AND used = FALSE
	`, userID)

	var vc VerificationCode
	if err := row.Scan(&vc.ID, &vc.UserID, &vc.Code, &vc.DeliveryMethod,
		&vc.ExpiresAt, &vc.Used, &vc.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &vc, nil
}

// MarkCodeUsed consumes a code. The guard on used = FALSE makes
// consumption first-wins: a replay of the same code reports no rows.
func (r *UserRepository) MarkCodeUsed(ctx context.Context, codeID string) (bool, error) {
	tag, err := r.DB.Exec(ctx, `
		UPDATE verification_codes SET used = TRUE WHERE id = $1 AND used = FALSE
	`, codeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// DeleteCode removes a user's outstanding code; used to compensate a
// stored code whose delivery failed.
func (r *UserRepository) DeleteCode(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM verification_codes WHERE user_id = $1`, userID)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var (
		id                  string
		email               string
		phone               sql.NullString
		firstName           sql.NullString
		lastName            sql.NullString
		passwordHash        string
		active              bool
		twoFactorEnabled    bool
		twoFactorMethod     sql.NullString
		twoFactorSecret     sql.NullString
		invitationStatus    string
		invitationToken     sql.NullString
		invitationSentAt    sql.NullTime
		invitationExpiresAt sql.NullTime
		invitedBy           sql.NullString
		registrationDoneAt  sql.NullTime
		lastLogin           sql.NullTime
		createdAt           time.Time
		updatedAt           time.Time
	)

	if err := row.Scan(
		&id,
		&email,
		&phone,
		&firstName,
		&lastName,
		&passwordHash,
		&active,
		&twoFactorEnabled,
		&twoFactorMethod,
		&twoFactorSecret,
		&invitationStatus,
		&invitationToken,
		&invitationSentAt,
		&invitationExpiresAt,
		&invitedBy,
		&registrationDoneAt,
		&lastLogin,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	return &User{
		ID:                      id,
		Email:                   email,
		Phone:                   nullStringPtr(phone),
		FirstName:               nullStringPtr(firstName),
		LastName:                nullStringPtr(lastName),
		PasswordHash:            passwordHash,
		Active:                  active,
		TwoFactorEnabled:        twoFactorEnabled,
		TwoFactorMethod:         nullStringPtr(twoFactorMethod),
		TwoFactorSecret:         nullStringPtr(twoFactorSecret),
		InvitationStatus:        invitationStatus,
		InvitationToken:         nullStringPtr(invitationToken),
		InvitationSentAt:        nullTimePtr(invitationSentAt),
		InvitationExpiresAt:     nullTimePtr(invitationExpiresAt),
		InvitedBy:               nullStringPtr(invitedBy),
		RegistrationCompletedAt: nullTimePtr(registrationDoneAt),
		LastLogin:               nullTimePtr(lastLogin),
		CreatedAt:               createdAt,
		UpdatedAt:               updatedAt,
	}, nil
}

func nullStringPtr(ns sql.NullString) *string {
	if ns.Valid {
		return &ns.String
	}
	return nil
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}
