package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"careops/internal/auth"
	"careops/internal/i18n"
)

type inviteWorkerRequest struct {
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone"`
}

// handleInviteWorker creates the invited row and delivers the invitation
// as one unit; a failed delivery leaves no trace in the datastore.
func (s *Server) handleInviteWorker(w http.ResponseWriter, r *http.Request) {
	var req inviteWorkerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if !validateEmail(req.Email) {
		writeError(w, http.StatusBadRequest, "A valid email address is required.")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		writeError(w, http.StatusBadRequest, "first_name and last_name are required.")
		return
	}

	inviter := userFromContext(r.Context())
	if inviter == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required.")
		return
	}

	invitation, err := s.Invites.Invite(r.Context(), i18n.LocaleFromRequest(r), req.Email, auth.InviteProfile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
	}, inviter.ID)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	writeSuccess(w, http.StatusCreated, "Invitation sent.", map[string]interface{}{
		"user_id":    invitation.UserID,
		"token":      invitation.Token,
		"expires_at": invitation.ExpiresAt,
	})
}

func (s *Server) handleValidateInvitation(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	user, err := s.Invites.Validate(r.Context(), token)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	writeSuccess(w, http.StatusOK, "Invitation is valid.", map[string]interface{}{
		"email":      user.Email,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"expires_at": user.InvitationExpiresAt,
	})
}

type completeRegistrationRequest struct {
	Token    string  `json:"token"`
	Password string  `json:"password"`
	Phone    *string `json:"phone"`
}

func (s *Server) handleCompleteRegistration(w http.ResponseWriter, r *http.Request) {
	var req completeRegistrationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "Invitation token is required.")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := s.Invites.Complete(r.Context(), req.Token, req.Password, req.Phone)
	if err != nil {
		writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	writeSuccess(w, http.StatusOK, "Registration complete.", map[string]interface{}{
		"user":  userPayload(user),
		"token": token,
	})
}
