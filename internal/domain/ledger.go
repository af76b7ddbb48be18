package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntryKind вид проводки во внешней учетной системе
type LedgerEntryKind string

const (
	LedgerReceivable LedgerEntryKind = "RECEIVABLE"
	LedgerCashIncome LedgerEntryKind = "CASH_INCOME"
	LedgerRefund     LedgerEntryKind = "REFUND"
)

// ledgerNamespace пространство имен для детерминированных ключей идемпотентности
var ledgerNamespace = uuid.MustParse("5b2c7d0e-3f4a-4c1b-9e8d-2a6f1c0b7d3e")

// LedgerEntry represents a side-effecting posting triggered by a state transition
type LedgerEntry struct {
	IdempotencyKey     uuid.UUID
	Kind               LedgerEntryKind
	MappingID          int64
	ExtensionRequestID *int64
	Amount             decimal.Decimal
	PaymentMethod      PaymentMethod
	Reference          string
	Description        string
	OccurredAt         time.Time
}

// MappingLedgerKey ключ проводки по маппингу; повтор перехода дает тот же ключ
func MappingLedgerKey(mappingID int64, kind LedgerEntryKind) uuid.UUID {
	return uuid.NewSHA1(ledgerNamespace, []byte(fmt.Sprintf("%d:%s", mappingID, kind)))
}

// ExtensionLedgerKey ключ проводки по запросу на продление
func ExtensionLedgerKey(requestID int64, kind LedgerEntryKind) uuid.UUID {
	return uuid.NewSHA1(ledgerNamespace, []byte(fmt.Sprintf("ext:%d:%s", requestID, kind)))
}

// NewMappingLedgerEntry проводка по переходу маппинга
func NewMappingLedgerEntry(m *Mapping, kind LedgerEntryKind, amount decimal.Decimal, at time.Time) LedgerEntry {
	return LedgerEntry{
		IdempotencyKey: MappingLedgerKey(m.ID, kind),
		Kind:           kind,
		MappingID:      m.ID,
		Amount:         amount,
		PaymentMethod:  m.PaymentMethod,
		Reference:      m.PaymentReference,
		Description:    fmt.Sprintf("%s: %s", kind, m.PackageName),
		OccurredAt:     at,
	}
}

// NewExtensionLedgerEntry проводка по завершенному продлению
func NewExtensionLedgerEntry(r *ExtensionRequest, at time.Time) LedgerEntry {
	id := r.ID
	return LedgerEntry{
		IdempotencyKey:     ExtensionLedgerKey(r.ID, LedgerCashIncome),
		Kind:               LedgerCashIncome,
		MappingID:          r.MappingID,
		ExtensionRequestID: &id,
		Amount:             r.PackagePrice,
		PaymentMethod:      r.PaymentMethod,
		Reference:          r.PaymentReference,
		Description:        fmt.Sprintf("extension +%d sessions: %s", r.AdditionalSessions, r.PackageName),
		OccurredAt:         at,
	}
}
