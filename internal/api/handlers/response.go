package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
	"github.com/m04kA/SMC-CounselingService/pkg/types"
)

const (
	msgInternalError = "внутренняя ошибка сервера"
	msgOK            = "ok"
)

// Envelope формат всех ответов API
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// DecodeJSON декодирует тело запроса, неизвестные поля запрещены
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// RespondJSON успешный ответ с данными
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	writeEnvelope(w, status, Envelope{Success: true, Message: msgOK, Data: data})
}

// RespondError ответ с ошибкой
func RespondError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, Envelope{Success: false, Message: message})
}

// RespondErrorData ответ с ошибкой и деталями
func RespondErrorData(w http.ResponseWriter, status int, message string, data interface{}) {
	writeEnvelope(w, status, Envelope{Success: false, Message: message, Data: data})
}

func RespondBadRequest(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusBadRequest, message)
}

func RespondUnauthorized(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusUnauthorized, message)
}

func RespondForbidden(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusForbidden, message)
}

func RespondNotFound(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusNotFound, message)
}

func RespondConflict(w http.ResponseWriter, message string) {
	RespondError(w, http.StatusConflict, message)
}

func RespondInternalError(w http.ResponseWriter) {
	RespondError(w, http.StatusInternalServerError, msgInternalError)
}

func writeEnvelope(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// RespondDomainError отвечает на ошибки бизнес-правил.
// Возвращает false, если ошибка не доменная и ее нужно обработать вызывающему.
func RespondDomainError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		RespondConflict(w, "операция недоступна в текущем статусе")
	case errors.Is(err, domain.ErrAlreadyCompleted):
		RespondConflict(w, "запрос на продление уже завершен")
	case errors.Is(err, domain.ErrInvalidStateForEdit):
		RespondConflict(w, "маппинг можно изменить только до подтверждения оплаты")
	case errors.Is(err, domain.ErrMappingNotUsable):
		RespondConflict(w, "маппинг не активен")
	case errors.Is(err, domain.ErrNoRemainingSessions):
		RespondConflict(w, "в пакете не осталось сессий")
	case errors.Is(err, domain.ErrMissingPaymentReference):
		RespondBadRequest(w, "для безналичной оплаты нужен номер платежа")
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		RespondBadRequest(w, "неизвестный способ оплаты")
	case errors.Is(err, domain.ErrInvalidSessionCount):
		RespondBadRequest(w, fmt.Sprintf("количество сессий должно быть от %d до %d",
			domain.MinExtensionSessions, domain.MaxExtensionSessions))
	case errors.Is(err, domain.ErrInvalidPrice):
		RespondBadRequest(w, "цена не может быть отрицательной")
	case errors.Is(err, domain.ErrInvalidPackage):
		RespondBadRequest(w, "некорректные условия пакета")
	case errors.Is(err, domain.ErrInvalidRequester):
		RespondBadRequest(w, "не указан автор запроса")
	case errors.Is(err, domain.ErrInvalidStatus):
		RespondBadRequest(w, "неизвестный статус")
	case errors.Is(err, types.ErrInvalidTimeFormat):
		RespondBadRequest(w, "некорректный формат времени, ожидается HH:MM")
	default:
		return false
	}
	return true
}

// PathID извлекает положительный int64 из переменной пути
func PathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return id, nil
}

// QueryID опциональный int64 из query параметра
func QueryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid %s: %q", name, raw)
	}
	return &id, nil
}

// QueryList значения через запятую: ?status=ACTIVE,INACTIVE
func QueryList(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
