package handlers

import (
	"errors"
	"net/http"

	apierrors "github.com/pribylovaa/auth-service/internal/errors"
	"github.com/pribylovaa/auth-service/internal/http/middleware"
	"github.com/pribylovaa/auth-service/internal/service"
)

type resetRequestRequest struct {
	Email string `json:"email"`
}

// ResetRequest принимает заявку на сброс пароля.
// Ответ одинаков для существующего и несуществующего email — по телу и
// статусу нельзя перечислять учетные записи. Наружу пробиваются только
// ошибки валидации формата и rate-limit.
func (h *Handlers) ResetRequest(w http.ResponseWriter, r *http.Request) {
	var in resetRequestRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.RequestPasswordReset(r.Context(), in.Email); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if the account exists, a reset link has been sent",
	})
}

type resetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// ResetConfirm завершает сброс пароля по одноразовому токену.
// Невалидный/просроченный/использованный токен отдаем как 400, а не 401:
// запрос не является аутентификацией.
func (h *Handlers) ResetConfirm(w http.ResponseWriter, r *http.Request) {
	var in resetConfirmRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.ConfirmPasswordReset(r.Context(), in.Token, in.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrTokenExpired) {
			apierrors.WriteError(w, r, apierrors.ErrBadRequest)
			return
		}

		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "password has been reset",
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword меняет пароль аутентифицированного пользователя.
// Субъект берется из контекста (Authn), а не из тела запроса.
func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	var in changePasswordRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrBadRequest)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), userID, in.CurrentPassword, in.NewPassword); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "password has been changed",
	})
}
