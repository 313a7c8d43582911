package server

import (
	"errors"
	"net/http"

	"careops/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if !validateEmail(req.Email) || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	ctx := r.Context()
	ip := clientIP(r, s.trustedProxies)

	if s.RateLimiter.IsIPBanned(ctx, ip) {
		writeError(w, http.StatusTooManyRequests, "Too many failed attempts. Try again later.")
		return
	}

	result, err := s.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			_ = s.RateLimiter.RegisterLoginFailure(ctx, ip)
		}
		writeServiceError(w, err, http.StatusUnauthorized)
		return
	}
	s.RateLimiter.ResetLogin(ctx, ip)

	if result.RequiresTwoFactor {
		writeSuccess(w, http.StatusOK, "Two-factor verification required.", map[string]interface{}{
			"requires_2fa": true,
			"user":         userPayload(result.User),
		})
		return
	}

	writeSuccess(w, http.StatusOK, "Login successful.", map[string]interface{}{
		"requires_2fa": false,
		"user":         userPayload(result.User),
		"token":        result.Token,
		"expires_at":   result.ExpiresAt,
	})
}

type changePasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// handleChangePassword sets the credential for an invited user. The
// invitation token identifies the target account; there is no fallback to
// "whichever row happens to be invited".
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Invitation token is required.")
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := s.Invites.ChangePassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	writeSuccess(w, http.StatusOK, "Password updated.", map[string]interface{}{
		"user": userPayload(user),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}
	writeSuccess(w, http.StatusOK, "OK", map[string]interface{}{
		"user": userPayload(user),
	})
}
