package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	apierrors "github.com/pribylovaa/auth-service/internal/errors"
	"github.com/pribylovaa/auth-service/internal/models"
	"github.com/pribylovaa/auth-service/internal/service"
)

// registerRequest — тело POST /register.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// userResponse — публичное представление учетной записи без чувствительных полей.
type userResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	IsActive   bool       `json:"is_active"`
	IsVerified bool       `json:"is_verified"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login_at,omitempty"`
}

func userToResponse(u *models.User) userResponse {
	return userResponse{
		ID:         u.ID.String(),
		Email:      u.Email,
		IsActive:   u.IsActive,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		LastLogin:  u.LastLoginAt,
	}
}

// tokenPairResponse — тело успешного входа/refresh.
type tokenPairResponse struct {
	AccessToken     string    `json:"access_token"`
	RefreshToken    string    `json:"refresh_token"`
	TokenType       string    `json:"token_type"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
	UserID          string    `json:"user_id"`
}

func pairToResponse(pair *models.TokenPair, userID uuid.UUID) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:     pair.AccessToken,
		RefreshToken:    pair.RefreshToken,
		TokenType:       "Bearer",
		AccessExpiresAt: pair.AccessExpiresAt,
		UserID:          userID.String(),
	}
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in registerRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	user, err := h.svc.RegisterUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, userToResponse(user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, userID, err := h.svc.LoginUser(r.Context(), in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pairToResponse(pair, userID))
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	pair, userID, err := h.svc.RefreshToken(r.Context(), in.RefreshToken)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pairToResponse(pair, userID))
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Logout отзывает refresh-токен. Идемпотентен: повторный logout с тем же
// токеном (или с неизвестным токеном) отвечает 200, чтобы клиент мог
// безопасно ретраить. Глотаются только ошибки состояния токена; отказ
// хранилища уходит клиенту как 5xx — отвечать "revoked" без записи нельзя.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	var in logoutRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.RevokeToken(r.Context(), in.RefreshToken); err != nil {
		if !errors.Is(err, service.ErrInvalidToken) &&
			!errors.Is(err, service.ErrTokenRevoked) &&
			!errors.Is(err, service.ErrTokenExpired) {
			apierrors.WriteError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"revoked": true})
}

type verifyEmailRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

func (h *Handlers) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in verifyEmailRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.VerifyEmail(r.Context(), userID, in.Code); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}
