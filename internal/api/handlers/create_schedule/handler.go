package create_schedule

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-CounselingService/internal/api/handlers"
	createSchedule "github.com/m04kA/SMC-CounselingService/internal/usecase/create_schedule"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidDate        = "некорректный формат даты, ожидается YYYY-MM-DD"
	msgInvalidTime        = "некорректный формат времени начала, ожидается HH:MM"
	msgTimeConflict       = "время пересекается с другой сессией консультанта или перерыв меньше допустимого"
	msgMappingNotFound    = "маппинг не найден"
	msgMappingNotUsable   = "маппинг не активен, запись на сессию недоступна"
	msgNoSessions         = "в пакете не осталось сессий"
	msgInvalidScheduleDay = "дата сессии в прошлом"
	msgTooLate            = "время начала уже прошло"
	msgConcurrentUpdate   = "маппинг был изменен, повторите запрос"
	msgInvalidInput       = "некорректные параметры сессии"
)

type Handler struct {
	useCase CreateScheduleUseCase
	logger  Logger
}

func NewHandler(useCase CreateScheduleUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle POST /api/v1/schedules
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /schedules - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	useCaseReq, err := req.ToUseCaseRequest()
	if err != nil {
		h.logger.Warn("POST /schedules - Failed to parse request: %v", err)
		if errors.Is(err, errInvalidTime) {
			handlers.RespondBadRequest(w, msgInvalidTime)
		} else {
			handlers.RespondBadRequest(w, msgInvalidDate)
		}
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, createSchedule.ErrTimeConflict):
			h.logger.Warn("POST /schedules - Time conflict: mapping_id=%d, date=%s, time=%s", req.MappingID, req.Date, req.StartTime)
			handlers.RespondConflict(w, msgTimeConflict)

		case errors.Is(err, createSchedule.ErrMappingNotFound):
			h.logger.Warn("POST /schedules - Mapping not found: mapping_id=%d", req.MappingID)
			handlers.RespondNotFound(w, msgMappingNotFound)

		case errors.Is(err, createSchedule.ErrMappingNotUsable):
			h.logger.Warn("POST /schedules - Mapping not usable: mapping_id=%d", req.MappingID)
			handlers.RespondConflict(w, msgMappingNotUsable)

		case errors.Is(err, createSchedule.ErrNoRemainingSessions):
			h.logger.Warn("POST /schedules - No remaining sessions: mapping_id=%d", req.MappingID)
			handlers.RespondConflict(w, msgNoSessions)

		case errors.Is(err, createSchedule.ErrConcurrentUpdate):
			h.logger.Warn("POST /schedules - Concurrent update: mapping_id=%d", req.MappingID)
			handlers.RespondConflict(w, msgConcurrentUpdate)

		case errors.Is(err, createSchedule.ErrInvalidDate):
			handlers.RespondBadRequest(w, msgInvalidScheduleDay)

		case errors.Is(err, createSchedule.ErrTooLateToBook):
			handlers.RespondBadRequest(w, msgTooLate)

		case errors.Is(err, createSchedule.ErrInvalidInput):
			h.logger.Warn("POST /schedules - Invalid input: %v", err)
			handlers.RespondBadRequest(w, msgInvalidInput)

		default:
			h.logger.Error("POST /schedules - Failed to create schedule: mapping_id=%d, error=%v", req.MappingID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("POST /schedules - Schedule created successfully: schedule_id=%d, mapping_id=%d",
		result.ID, result.MappingID)
	handlers.RespondJSON(w, http.StatusCreated, FromUseCaseResponse(result))
}
