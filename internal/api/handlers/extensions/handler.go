package extensions

import (
	"errors"
	"net/http"

	"github.com/m04kA/SMC-CounselingService/internal/api/handlers"
	"github.com/m04kA/SMC-CounselingService/internal/api/middleware"
	"github.com/m04kA/SMC-CounselingService/internal/service/extensions"
	"github.com/m04kA/SMC-CounselingService/internal/service/extensions/models"
)

const (
	msgInvalidRequestBody = "некорректное тело запроса"
	msgInvalidRequestID   = "некорректный ID запроса на продление"
	msgInvalidParams      = "некорректные параметры запроса"
	msgMissingUserID      = "отсутствует ID пользователя"
	msgNotFound           = "запрос на продление не найден"
	msgMappingNotFound    = "маппинг не найден"
	msgNotEligible        = "маппинг нельзя продлить в текущем статусе"
	msgPendingExists      = "у маппинга уже есть незавершенный запрос на продление"
	msgConcurrentUpdate   = "запрос был изменен, повторите попытку"
	msgInvalidInput       = "некорректные данные запроса"
	msgUserNotFound       = "пользователь не найден"
	msgAdminRequired      = "действие доступно только администратору"
	msgNotParticipant     = "запрос на продление может создать только участник маппинга или администратор"
)

type Handler struct {
	service ExtensionService
	logger  Logger
}

func NewHandler(service ExtensionService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Create POST /api/v1/extension-requests
// Автор запроса берется из X-User-ID
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("POST /extension-requests - Missing user ID")
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req models.CreateExtensionRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("POST /extension-requests - Invalid request body: %v", err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}
	req.RequesterID = requesterID

	result, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.respondError(w, "POST /extension-requests", 0, err)
		return
	}

	h.logger.Info("POST /extension-requests - Request created: request_id=%d, mapping_id=%d, requester_id=%d",
		result.ID, result.MappingID, result.RequesterID)
	handlers.RespondJSON(w, http.StatusCreated, result)
}

// Get GET /api/v1/extension-requests/{requestId}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requestID(w, r, "GET /extension-requests/{id}")
	if !ok {
		return
	}

	result, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.respondError(w, "GET /extension-requests/{id}", id, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// List GET /api/v1/extension-requests
// Query params: mappingId, requesterId, status (через запятую)
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	mappingID, err := handlers.QueryID(r, "mappingId")
	if err != nil {
		h.logger.Warn("GET /extension-requests - Invalid params: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}
	requesterID, err := handlers.QueryID(r, "requesterId")
	if err != nil {
		h.logger.Warn("GET /extension-requests - Invalid params: %v", err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.service.List(r.Context(), &models.ListExtensionsRequest{
		MappingID:   mappingID,
		RequesterID: requesterID,
		Statuses:    handlers.QueryList(r, "status"),
	})
	if err != nil {
		h.respondError(w, "GET /extension-requests", 0, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// EligibleMappings GET /api/v1/extension-requests/eligible-mappings
// Query params: consultantId, clientId
func (h *Handler) EligibleMappings(w http.ResponseWriter, r *http.Request) {
	consultantID, err := handlers.QueryID(r, "consultantId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}
	clientID, err := handlers.QueryID(r, "clientId")
	if err != nil {
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.service.ListEligibleMappings(r.Context(), consultantID, clientID)
	if err != nil {
		h.respondError(w, "GET /extension-requests/eligible-mappings", 0, err)
		return
	}

	h.logger.Info("GET /extension-requests/eligible-mappings - count=%d", len(result.Mappings))
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Statistics GET /api/v1/extension-requests/statistics
// Query params: startDate, endDate (YYYY-MM-DD, включительно)
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	const op = "GET /extension-requests/statistics"

	req, err := ToStatisticsRequest(r)
	if err != nil {
		h.logger.Warn("%s - Invalid params: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidParams)
		return
	}

	result, err := h.service.Statistics(r.Context(), req)
	if err != nil {
		h.respondError(w, op, 0, err)
		return
	}

	h.logger.Info("%s - total=%d, requesters=%d", op, result.Period.Total, len(result.Requesters))
	handlers.RespondJSON(w, http.StatusOK, result)
}

// ConfirmPayment POST /api/v1/extension-requests/{requestId}/confirm-payment
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	const op = "POST /extension-requests/{id}/confirm-payment"

	id, ok := h.requestID(w, r, op)
	if !ok {
		return
	}

	var req models.ConfirmPaymentRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("%s - Invalid request body: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.ConfirmPayment(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}

	h.logger.Info("%s - Payment confirmed: request_id=%d, status=%s", op, id, result.Status)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Approve POST /api/v1/extension-requests/{requestId}/approve
// Администратор берется из X-User-ID, тело {"comment": "..."} необязательно
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	const op = "POST /extension-requests/{id}/approve"

	id, ok := h.requestID(w, r, op)
	if !ok {
		return
	}

	adminID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("%s - Missing user ID", op)
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req models.ApproveRequest
	if r.ContentLength != 0 {
		if err := handlers.DecodeJSON(r, &req); err != nil {
			h.logger.Warn("%s - Invalid request body: %v", op, err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)
			return
		}
	}

	result, err := h.service.Approve(r.Context(), id, adminID, &req)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}

	h.logger.Info("%s - Request approved: request_id=%d, admin_id=%d", op, id, adminID)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Complete POST /api/v1/extension-requests/{requestId}/complete
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	const op = "POST /extension-requests/{id}/complete"

	id, ok := h.requestID(w, r, op)
	if !ok {
		return
	}

	result, err := h.service.Complete(r.Context(), id)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}

	h.logger.Info("%s - Request completed: request_id=%d", op, id)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Reject POST /api/v1/extension-requests/{requestId}/reject
// Администратор берется из X-User-ID
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	const op = "POST /extension-requests/{id}/reject"

	id, ok := h.requestID(w, r, op)
	if !ok {
		return
	}

	adminID, ok := middleware.GetUserID(r.Context())
	if !ok {
		h.logger.Warn("%s - Missing user ID", op)
		handlers.RespondUnauthorized(w, msgMissingUserID)
		return
	}

	var req models.RejectRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("%s - Invalid request body: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.Reject(r.Context(), id, adminID, &req)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}

	h.logger.Info("%s - Request rejected: request_id=%d, admin_id=%d", op, id, adminID)
	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) requestID(w http.ResponseWriter, r *http.Request, op string) (int64, bool) {
	id, err := handlers.PathID(r, "requestId")
	if err != nil {
		h.logger.Warn("%s - Invalid request ID: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidRequestID)
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, id int64, err error) {
	switch {
	case errors.Is(err, extensions.ErrRequestNotFound):
		h.logger.Warn("%s - Request not found: request_id=%d", op, id)
		handlers.RespondNotFound(w, msgNotFound)

	case errors.Is(err, extensions.ErrMappingNotFound):
		h.logger.Warn("%s - Mapping not found: %v", op, err)
		handlers.RespondNotFound(w, msgMappingNotFound)

	case errors.Is(err, extensions.ErrMappingNotEligible):
		h.logger.Warn("%s - Mapping not eligible: %v", op, err)
		handlers.RespondConflict(w, msgNotEligible)

	case errors.Is(err, extensions.ErrPendingRequestExists):
		h.logger.Warn("%s - Open request exists: %v", op, err)
		handlers.RespondConflict(w, msgPendingExists)

	case errors.Is(err, extensions.ErrUserNotFound):
		h.logger.Warn("%s - User not found: %v", op, err)
		handlers.RespondNotFound(w, msgUserNotFound)

	case errors.Is(err, extensions.ErrAdminRequired):
		h.logger.Warn("%s - Forbidden: %v", op, err)
		handlers.RespondForbidden(w, msgAdminRequired)

	case errors.Is(err, extensions.ErrRequesterNotAllowed):
		h.logger.Warn("%s - Forbidden: %v", op, err)
		handlers.RespondForbidden(w, msgNotParticipant)

	case errors.Is(err, extensions.ErrConcurrentUpdate):
		h.logger.Warn("%s - Concurrent update: request_id=%d", op, id)
		handlers.RespondConflict(w, msgConcurrentUpdate)

	case errors.Is(err, extensions.ErrInvalidInput):
		h.logger.Warn("%s - Invalid input: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidInput)

	case handlers.RespondDomainError(w, err):
		h.logger.Warn("%s - Rejected: request_id=%d, error=%v", op, id, err)

	default:
		h.logger.Error("%s - Failed: request_id=%d, error=%v", op, id, err)
		handlers.RespondInternalError(w)
	}
}
