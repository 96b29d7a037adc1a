// handlers содержит REST-обработчики поверх доменного слоя service.
//
// Контракты:
//   - тела запросов декодируются строго (неизвестные поля -> 400);
//   - все ошибки уходят через apierrors.WriteError единым форматом;
//   - обработчики не содержат доменной логики — только транспорт.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pribylovaa/auth-service/internal/service"
)

// Handlers агрегирует зависимости (доменный сервис).
type Handlers struct {
	svc *service.Service
}

func New(svc *service.Service) *Handlers {
	return &Handlers{svc: svc}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}
