package get_available_slots

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-CounselingService/internal/api/handlers"
	getAvailableSlots "github.com/m04kA/SMC-CounselingService/internal/usecase/get_available_slots"
)

const (
	msgInvalidConsultantID = "некорректный ID консультанта"
	msgInvalidMappingID    = "некорректный ID маппинга"
	msgMissingDate         = "дата обязательна"
	msgInvalidParams       = "некорректный формат даты или длительности"
	msgInvalidInput        = "длительность должна быть 30, 50, 80 или 100 минут"
	msgPastDate            = "дата в прошлом"
	msgMappingNotFound     = "маппинг не найден"
	msgMappingClosed       = "маппинг завершен"
)

type Handler struct {
	useCase GetAvailableSlotsUseCase
	logger  Logger
}

func NewHandler(useCase GetAvailableSlotsUseCase, logger Logger) *Handler {
	return &Handler{
		useCase: useCase,
		logger:  logger,
	}
}

// Handle GET /api/v1/consultants/{consultantId}/available-slots
// Query params: date (required, YYYY-MM-DD), duration (30|50|80|100), mappingId
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	consultantID, err := handlers.PathID(r, "consultantId")
	if err != nil {
		h.logger.Warn("GET /consultants/{id}/available-slots - Invalid consultant ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidConsultantID)
		return
	}

	mappingID, err := handlers.QueryID(r, "mappingId")
	if err != nil {
		h.logger.Warn("GET /consultants/{id}/available-slots - Invalid mapping ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidMappingID)
		return
	}

	dateStr := r.URL.Query().Get("date")
	if dateStr == "" {
		h.logger.Warn("GET /consultants/{id}/available-slots - Missing date")
		handlers.RespondBadRequest(w, msgMissingDate)
		return
	}

	useCaseReq, err := ToUseCaseRequest(consultantID, mappingID, dateStr, r.URL.Query().Get("duration"))
	if err != nil {
		h.logger.Warn("GET /consultants/{id}/available-slots - Invalid params: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.useCase.Execute(r.Context(), useCaseReq)
	if err != nil {
		switch {
		case errors.Is(err, getAvailableSlots.ErrInvalidInput):
			handlers.RespondBadRequest(w, msgInvalidInput)

		case errors.Is(err, getAvailableSlots.ErrInvalidDate):
			handlers.RespondBadRequest(w, msgPastDate)

		case errors.Is(err, getAvailableSlots.ErrMappingNotFound):
			h.logger.Warn("GET /consultants/{id}/available-slots - Mapping not found: mapping_id=%d", *mappingID)
			handlers.RespondNotFound(w, msgMappingNotFound)

		case errors.Is(err, getAvailableSlots.ErrMappingNotBrowsable):
			handlers.RespondConflict(w, msgMappingClosed)

		default:
			h.logger.Error("GET /consultants/{id}/available-slots - Failed to get slots: consultant_id=%d, error=%v",
				consultantID, err)
			handlers.RespondInternalError(w)
		}
		return
	}

	h.logger.Info("GET /consultants/{id}/available-slots - Slots retrieved successfully: consultant_id=%d, slots_count=%d",
		result.ConsultantID, len(result.Slots))
	handlers.RespondJSON(w, http.StatusOK, FromUseCaseResponse(result))
}
