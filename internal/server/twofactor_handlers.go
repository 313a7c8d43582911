package server

import (
	"net/http"

	"careops/internal/auth"
	"careops/internal/i18n"
)

type sendCodeRequest struct {
	UserID  string `json:"user_id"`
	Channel string `json:"channel"`
}

func (s *Server) handleSendCode(w http.ResponseWriter, r *http.Request) {
	var req sendCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required.")
		return
	}
	if req.Channel != auth.ChannelSMS && req.Channel != auth.ChannelEmail {
		writeError(w, http.StatusBadRequest, "channel must be sms or email.")
		return
	}

	ctx := r.Context()
	if ttl := s.RateLimiter.SendCooldownTTL(ctx, req.UserID); ttl > 0 {
		writeError(w, http.StatusTooManyRequests, "Please wait before requesting another code.")
		return
	}

	issued, err := s.Codes.Issue(ctx, i18n.LocaleFromRequest(r), req.UserID, req.Channel)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	s.RateLimiter.SetSendCooldown(ctx, req.UserID)

	writeSuccess(w, http.StatusOK, "Verification code sent.", map[string]interface{}{
		"channel":    issued.Channel,
		"sent_to":    issued.MaskedContact,
		"expires_at": issued.ExpiresAt,
	})
}

type verifyCodeRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.UserID == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "user_id and code are required.")
		return
	}

	ctx := r.Context()
	result, err := s.Auth.CompleteTwoFactorLogin(ctx, req.UserID, req.Code)
	if err != nil {
		if locked, _ := s.RateLimiter.Register2FAFailure(ctx, req.UserID); locked {
			writeError(w, http.StatusTooManyRequests, "Too many failed attempts. Try again later.")
			return
		}
		writeServiceError(w, err, http.StatusUnauthorized)
		return
	}
	s.RateLimiter.Reset2FA(ctx, req.UserID)

	writeSuccess(w, http.StatusOK, "Login successful.", map[string]interface{}{
		"user":       userPayload(result.User),
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
	})
}

type twoFactorSetupRequest struct {
	Method string `json:"method"`
}

// handleTwoFactorSetupStart begins 2FA enrollment for the authenticated
// user. For sms/email a code is delivered on the chosen channel; for app a
// TOTP secret is generated for the authenticator.
func (s *Server) handleTwoFactorSetupStart(w http.ResponseWriter, r *http.Request) {
	var req twoFactorSetupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	ctx := r.Context()
	switch req.Method {
	case auth.ChannelApp:
		secret, otpauth, qr, err := s.TOTP.Generate(user.Email)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to generate secret.")
			return
		}
		if err := s.Users.UpdateTwoFactorSecret(ctx, user.ID, auth.ChannelApp, &secret); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to store secret.")
			return
		}
		writeSuccess(w, http.StatusOK, "Scan the QR code with your authenticator.", map[string]interface{}{
			"secret":      secret,
			"otpauth_url": otpauth,
			"qr_code_url": qr,
		})

	case auth.ChannelSMS, auth.ChannelEmail:
		issued, err := s.Codes.Issue(ctx, i18n.LocaleFromRequest(r), user.ID, req.Method)
		if err != nil {
			writeServiceError(w, err, http.StatusBadRequest)
			return
		}
		if err := s.Users.UpdateTwoFactorSecret(ctx, user.ID, req.Method, nil); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to store method.")
			return
		}
		writeSuccess(w, http.StatusOK, "Verification code sent.", map[string]interface{}{
			"channel":    issued.Channel,
			"sent_to":    issued.MaskedContact,
			"expires_at": issued.ExpiresAt,
		})

	default:
		writeError(w, http.StatusBadRequest, "method must be sms, email or app.")
	}
}

type twoFactorFinalizeRequest struct {
	Method string `json:"method"`
	Code   string `json:"code"`
}

func (s *Server) handleTwoFactorSetupFinalize(w http.ResponseWriter, r *http.Request) {
	var req twoFactorFinalizeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required.")
		return
	}

	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}
	if user.TwoFactorMethod == nil || *user.TwoFactorMethod != req.Method {
		writeError(w, http.StatusBadRequest, "2FA setup was not started for this method.")
		return
	}

	ctx := r.Context()
	if !s.verifyCurrentFactor(r, user, req.Code) {
		writeError(w, http.StatusUnauthorized, "Invalid or expired code.")
		return
	}

	if err := s.Users.EnableTwoFactor(ctx, user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to enable two-factor authentication.")
		return
	}

	writeSuccess(w, http.StatusOK, "Two-factor authentication enabled.", nil)
}

type twoFactorDisableRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleTwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	var req twoFactorDisableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}
	if !user.TwoFactorEnabled {
		writeError(w, http.StatusBadRequest, "Two-factor authentication is not enabled.")
		return
	}

	if !s.verifyCurrentFactor(r, user, req.Code) {
		writeError(w, http.StatusUnauthorized, "Invalid or expired code.")
		return
	}

	if err := s.Users.DisableTwoFactor(r.Context(), user.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to disable two-factor authentication.")
		return
	}

	writeSuccess(w, http.StatusOK, "Two-factor authentication disabled.", nil)
}

// verifyCurrentFactor checks a code against the user's configured method:
// the TOTP secret for app, the outstanding delivered code otherwise.
func (s *Server) verifyCurrentFactor(r *http.Request, user *auth.User, code string) bool {
	if user.TwoFactorMethod != nil && *user.TwoFactorMethod == auth.ChannelApp {
		return user.TwoFactorSecret != nil && s.TOTP.Verify(*user.TwoFactorSecret, code)
	}
	return s.Codes.Verify(r.Context(), user.ID, code) == nil
}
