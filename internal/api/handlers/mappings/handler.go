package mappings

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-CounselingService/internal/api/handlers"
	"github.com/m04kA/SMC-CounselingService/internal/service/mappings"
	"github.com/m04kA/SMC-CounselingService/internal/service/mappings/models"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidMappingID   = "некорректный ID маппинга"
	msgInvalidParams      = "некорректные параметры запроса"
	msgNotFound           = "маппинг не найден"
	msgUserNotFound       = "консультант или клиент не найден"
	msgInvalidUserRole    = "у пользователя неподходящая роль"
	msgConcurrentUpdate   = "маппинг был изменен, повторите запрос"
	msgInvalidInput       = "некорректные данные маппинга"
)

type Handler struct {
	service MappingService
	logger  Logger
}

func NewHandler(service MappingService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Create POST /api/v1/mappings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateMappingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /mappings - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.respondError(w, "POST /mappings", 0, err)
		return
	}

	h.logger.Info("POST /mappings - Mapping created successfully: mapping_id=%d", result.ID)
	handlers.RespondJSON(w, http.StatusCreated, result)
}

// Update PUT /api/v1/mappings/{mappingId}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mappingID(w, r, "PUT /mappings/{id}")
	if !ok {
		return
	}

	var req models.UpdateMappingRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("PUT /mappings/{id} - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.Update(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, "PUT /mappings/{id}", id, err)
		return
	}

	h.logger.Info("PUT /mappings/{id} - Mapping updated successfully: mapping_id=%d", id)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Get GET /api/v1/mappings/{mappingId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.mappingID(w, r, "GET /mappings/{id}")
	if !ok {
		return
	}

	result, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, "GET /mappings/{id}", id, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// List GET /api/v1/mappings
// Query params: consultantId, clientId, status (через запятую)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	consultantID, err := handlers.QueryID(r, "consultantId")
	if err != nil {
		h.logger.Warn("GET /mappings - Invalid params: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}
	clientID, err := handlers.QueryID(r, "clientId")
	if err != nil {
		h.logger.Warn("GET /mappings - Invalid params: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.service.List(r.Context(), &models.ListMappingsRequest{
		ConsultantID: consultantID,
		ClientID:     clientID,
		Statuses:     handlers.QueryList(r, "status"),
	})
	if err != nil {
		h.respondError(w, "GET /mappings", 0, err)
		return
	}

	h.logger.Info("GET /mappings - Mappings retrieved successfully: count=%d", len(result.Mappings))
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) mappingID(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	id, err := handlers.PathID(r, "mappingId")
	if err != nil {
		h.logger.Warn("%s - Invalid mapping ID: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidMappingID)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, mappings.ErrMappingNotFound):
		h.logger.Warn("%s - Mapping not found: mapping_id=%d", op, id)
		handlers.RespondNotFound(w, msgNotFound)

	case errors.Is(err, mappings.ErrUserNotFound):
		h.logger.Warn("%s - User not found: %v", op, err)
		handlers.RespondNotFound(w, msgUserNotFound)

	case errors.Is(err, mappings.ErrInvalidUserRole):
		h.logger.Warn("%s - Invalid user role: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidUserRole)

	case errors.Is(err, mappings.ErrConcurrentUpdate):
		h.logger.Warn("%s - Concurrent update: mapping_id=%d", op, id)
		handlers.RespondConflict(w, msgConcurrentUpdate)

	case errors.Is(err, mappings.ErrInvalidInput):
		h.logger.Warn("%s - Invalid input: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidInput)

	case handlers.RespondDomainError(w, err):
		h.logger.Warn("%s - Rejected: mapping_id=%d, error=%v", op, id, err)

	default:
		h.logger.Error("%s - Failed: mapping_id=%d, error=%v", op, id, err)
		handlers.RespondInternalError(w)
	}
}
