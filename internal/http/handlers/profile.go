package handlers

import (
	"net/http"

	apierrors "github.com/pribylovaa/auth-service/internal/errors"
	"github.com/pribylovaa/auth-service/internal/http/middleware"
	"github.com/pribylovaa/auth-service/internal/service"
)

// Me возвращает профиль аутентифицированного пользователя.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFrom(r.Context())
	if !ok {
		apierrors.WriteError(w, r, service.ErrInvalidToken)
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, userToResponse(user))
}
