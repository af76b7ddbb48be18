package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-CounselingService/internal/domain"
)

// Posting тело запроса на создание проводки
type Posting struct {
	IdempotencyKey     string          `json:"idempotency_key"`
	Kind               string          `json:"kind"`
	MappingID          int64           `json:"mapping_id"`
	ExtensionRequestID *int64          `json:"extension_request_id,omitempty"`
	Amount             decimal.Decimal `json:"amount"`
	PaymentMethod      string          `json:"payment_method,omitempty"`
	Reference          string          `json:"reference,omitempty"`
	Description        string          `json:"description"`
	OccurredAt         time.Time       `json:"occurred_at"`
}

// NewPosting собирает тело запроса из доменной проводки
func NewPosting(e domain.LedgerEntry) Posting {
	return Posting{
		IdempotencyKey:     e.IdempotencyKey.String(),
		Kind:               string(e.Kind),
		MappingID:          e.MappingID,
		ExtensionRequestID: e.ExtensionRequestID,
		Amount:             e.Amount,
		PaymentMethod:      string(e.PaymentMethod),
		Reference:          e.Reference,
		Description:        e.Description,
		OccurredAt:         e.OccurredAt.UTC(),
	}
}
