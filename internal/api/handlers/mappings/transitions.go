package mappings

import (
	"net/http"

	"github.com/m04kA/SMC-CounselingService/internal/api/handlers"
	"github.com/m04kA/SMC-CounselingService/internal/service/mappings/models"
)

// ConfirmPayment POST /api/v1/mappings/{mappingId}/confirm-payment
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	const op = "POST /mappings/{id}/confirm-payment"

	id, ok := h.mappingID(w, r, op)
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

	h.logger.Info("%s - Payment confirmed: mapping_id=%d, status=%s", op, id, result.Status)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// ConfirmDeposit POST /api/v1/mappings/{mappingId}/confirm-deposit
func (h *Handler) ConfirmDeposit(w http.ResponseWriter, r *http.Request) {
	const op = "POST /mappings/{id}/confirm-deposit"

	id, ok := h.mappingID(w, r, op)
	if !ok {
		return
	}

	var req models.ConfirmDepositRequest
	if r.ContentLength != 0 {
		if err := handlers.DecodeJSON(r, &req); err != nil {
			h.logger.Warn("%s - Invalid request body: %v", op, err)
			handlers.RespondBadRequest(w, msgInvalidRequestBody)
			return
		}
	}

	result, err := h.service.ConfirmDeposit(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}

	h.logger.Info("%s - Deposit confirmed: mapping_id=%d", op, id)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Approve POST /api/v1/mappings/{mappingId}/approve
func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	const op = "POST /mappings/{id}/approve"

	id, ok := h.mappingID(w, r, op)
	if !ok {
		return
	}

	var req models.ApproveRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("%s - Invalid request body: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.Approve(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}

	h.logger.Info("%s - Mapping approved: mapping_id=%d", op, id)
	handlers.RespondJSON(w, http.StatusOK, result)
}

// Terminate POST /api/v1/mappings/{mappingId}/terminate
func (h *Handler) Terminate(w http.ResponseWriter, r *http.Request) {
	const op = "POST /mappings/{id}/terminate"

	id, ok := h.mappingID(w, r, op)
	if !ok {
		return
	}

	var req models.TerminateRequest
	if err := handlers.DecodeJSON(r, &req); err != nil {
		h.logger.Warn("%s - Invalid request body: %v", op, err)
		handlers.RespondBadRequest(w, msgInvalidRequestBody)
		return
	}

	result, err := h.service.Terminate(r.Context(), id, &req)
	if err != nil {
		h.respondError(w, op, id, err)
		return
	}

	h.logger.Info("%s - Mapping terminated: mapping_id=%d", op, id)
	handlers.RespondJSON(w, http.StatusOK, result)
}
