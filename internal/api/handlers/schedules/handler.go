package schedules

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-CounselingService/internal/api/handlers"
	"github.com/m04kA/SMC-CounselingService/internal/service/schedules"
	"github.com/m04kA/SMC-CounselingService/internal/service/schedules/models"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidScheduleID  = "некорректный ID сессии"
	msgInvalidParams      = "некорректные параметры запроса"
	msgNotFound           = "сессия не найдена"
	msgConcurrentUpdate   = "сессия была изменена, повторите запрос"
)

type Handler struct {
	service ScheduleService
	logger  Logger
}

func NewHandler(service ScheduleService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Get GET /api/v1/schedules/{scheduleId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := handlers.PathID(r, "scheduleId")
	if err != nil {
		h.logger.Warn("GET /schedules/{id} - Invalid schedule ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidScheduleID)
		return
	}

	result, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, "GET /schedules/{id}", id, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// List GET /api/v1/schedules
// Query params: consultantId, clientId, mappingId, date | startDate+endDate, status, includeCancelled
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req, err := ToServiceRequest(r)
	if err != nil {
		h.logger.Warn("GET /schedules - Invalid params: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, "GET /schedules", 0, err)
		return
	}

	h.logger.Info("GET /schedules - Schedules retrieved successfully: count=%d", len(result.Schedules))
	handlers.RespondJSON(w, http.StatusOK, result)
}

// ChangeStatus PATCH /api/v1/schedules/{scheduleId}/status
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	const op = "PATCH /schedules/{id}/status"

	id, err := handlers.PathID(r, "scheduleId")
	if err != nil {
		h.logger.Warn("%s - Invalid schedule ID: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidScheduleID)
		return
	}

	var req models.ChangeStatusRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("%s - Invalid request body: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.ChangeStatus(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}

	h.logger.Info("%s - Status changed: schedule_id=%d, status=%s", op, id, result.Status)
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, schedules.ErrScheduleNotFound):
		h.logger.Warn("%s - Schedule not found: schedule_id=%d", op, id)
		handlers.RespondNotFound(w, msgNotFound)

	case errors.Is(err, schedules.ErrConcurrentUpdate):
		handlers.RespondConflict(w, msgConcurrentUpdate)

	case errors.Is(err, schedules.ErrInvalidInput):
		h.logger.Warn("%s - Invalid input: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidParams)

	case handlers.RespondDomainError(w, err):
		h.logger.Warn("%s - Rejected: schedule_id=%d, error=%v", op, id, err)

	default:
		h.logger.Error("%s - Failed: schedule_id=%d, error=%v", op, id, err)
		handlers.RespondInternalError(w)
	}
}
