package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ExtensionStatus represents the state of a session extension request
type ExtensionStatus string

const (
	ExtensionPending          ExtensionStatus = "PENDING"
	ExtensionPaymentConfirmed ExtensionStatus = "PAYMENT_CONFIRMED"
	ExtensionAdminApproved    ExtensionStatus = "ADMIN_APPROVED"
	ExtensionCompleted        ExtensionStatus = "COMPLETED"
	ExtensionRejected         ExtensionStatus = "REJECTED"
)

// ParseExtensionStatus converts a stored label into the status
func ParseExtensionStatus(s string) (ExtensionStatus, error) {
	status := ExtensionStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch status {
	case ExtensionPending, ExtensionPaymentConfirmed, ExtensionAdminApproved, ExtensionCompleted, ExtensionRejected:
		return status, nil
	default:
		return "", fmt.Errorf("%w: extension status %q", ErrInvalidStatus, s)
	}
}

// IsTerminal returns true for COMPLETED and REJECTED
func (s ExtensionStatus) IsTerminal() bool {
	return s == ExtensionCompleted || s == ExtensionRejected
}

// ConfirmPayment fast path: a confirmed payment finalizes the request right away
func (s ExtensionStatus) ConfirmPayment() (ExtensionStatus, error) {
	switch s {
	case ExtensionPending, ExtensionPaymentConfirmed:
		return ExtensionCompleted, nil
	case ExtensionCompleted:
		return s, ErrAlreadyCompleted
	default:
		return s, fmt.Errorf("%w: confirm payment from %s", ErrInvalidTransition, s)
	}
}

// Approve PENDING|PAYMENT_CONFIRMED -> ADMIN_APPROVED
func (s ExtensionStatus) Approve() (ExtensionStatus, error) {
	switch s {
	case ExtensionPending, ExtensionPaymentConfirmed:
		return ExtensionAdminApproved, nil
	case ExtensionCompleted:
		return s, ErrAlreadyCompleted
	default:
		return s, fmt.Errorf("%w: approve from %s", ErrInvalidTransition, s)
	}
}

// Complete ADMIN_APPROVED|PAYMENT_CONFIRMED -> COMPLETED
func (s ExtensionStatus) Complete() (ExtensionStatus, error) {
	switch s {
	case ExtensionAdminApproved, ExtensionPaymentConfirmed:
		return ExtensionCompleted, nil
	case ExtensionCompleted:
		return s, ErrAlreadyCompleted
	default:
		return s, fmt.Errorf("%w: complete from %s", ErrInvalidTransition, s)
	}
}

// Reject any non-terminal state -> REJECTED
func (s ExtensionStatus) Reject() (ExtensionStatus, error) {
	switch s {
	case ExtensionPending, ExtensionPaymentConfirmed, ExtensionAdminApproved:
		return ExtensionRejected, nil
	case ExtensionCompleted:
		return s, ErrAlreadyCompleted
	default:
		return s, fmt.Errorf("%w: reject from %s", ErrInvalidTransition, s)
	}
}

// ExtensionRequest represents a request to add sessions to an existing mapping
type ExtensionRequest struct {
	ID                 int64
	MappingID          int64
	RequesterID        int64
	AdditionalSessions int
	PackageName        string
	PackagePrice       decimal.Decimal
	Reason             *string
	Status             ExtensionStatus

	PaymentMethod    PaymentMethod
	PaymentReference string

	ApprovedBy      *int64
	ApprovedAt      *time.Time
	AdminComment    *string
	RejectedBy      *int64
	RejectedAt      *time.Time
	RejectionReason *string
	CompletedAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewExtensionRequest создает запрос в состоянии PENDING
func NewExtensionRequest(mappingID, requesterID int64, additionalSessions int, packageName string, packagePrice decimal.Decimal, reason string) (*ExtensionRequest, error) {
	if requesterID <= 0 {
		return nil, ErrInvalidRequester
	}
	if additionalSessions < MinExtensionSessions || additionalSessions > MaxExtensionSessions {
		return nil, fmt.Errorf("%w: additional sessions must be %d..%d, got %d",
			ErrInvalidSessionCount, MinExtensionSessions, MaxExtensionSessions, additionalSessions)
	}
	if packagePrice.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if len(packageName) > MaxPackageNameLength {
		return nil, fmt.Errorf("%w: package name is too long", ErrInvalidPackage)
	}

	req := &ExtensionRequest{
		MappingID:          mappingID,
		RequesterID:        requesterID,
		AdditionalSessions: additionalSessions,
		PackageName:        strings.TrimSpace(packageName),
		PackagePrice:       packagePrice,
		Status:             ExtensionPending,
	}
	if r := strings.TrimSpace(reason); r != "" {
		req.Reason = &r
	}
	return req, nil
}

func (r *ExtensionRequest) clone() *ExtensionRequest {
	cp := *r
	return &cp
}

// ConfirmPayment records the payment and completes the request
func (r *ExtensionRequest) ConfirmPayment(method PaymentMethod, reference string, at time.Time) (*ExtensionRequest, error) {
	status, err := r.Status.ConfirmPayment()
	if err != nil {
		return nil, err
	}
	if err := RequirePaymentReference(method, reference); err != nil {
		return nil, err
	}

	next := r.clone()
	next.Status = status
	next.PaymentMethod = method
	next.PaymentReference = strings.TrimSpace(reference)
	next.CompletedAt = &at
	return next, nil
}

// Approve marks the request as approved by an administrator
func (r *ExtensionRequest) Approve(adminID int64, comment string, at time.Time) (*ExtensionRequest, error) {
	status, err := r.Status.Approve()
	if err != nil {
		return nil, err
	}

	next := r.clone()
	next.Status = status
	next.ApprovedBy = &adminID
	next.ApprovedAt = &at
	if comment = strings.TrimSpace(comment); comment != "" {
		next.AdminComment = &comment
	}
	return next, nil
}

// Complete finalizes an approved request
func (r *ExtensionRequest) Complete(at time.Time) (*ExtensionRequest, error) {
	status, err := r.Status.Complete()
	if err != nil {
		return nil, err
	}

	next := r.clone()
	next.Status = status
	next.CompletedAt = &at
	return next, nil
}

// Reject closes the request. Sessions are not added to the mapping.
func (r *ExtensionRequest) Reject(adminID int64, reason string, at time.Time) (*ExtensionRequest, error) {
	status, err := r.Status.Reject()
	if err != nil {
		return nil, err
	}

	next := r.clone()
	next.Status = status
	next.RejectedBy = &adminID
	next.RejectedAt = &at
	if reason = strings.TrimSpace(reason); reason != "" {
		next.RejectionReason = &reason
	}
	return next, nil
}

// ExtensionsFilter фильтр для списка запросов на продление
type ExtensionsFilter struct {
	MappingID   *int64
	RequesterID *int64
	Statuses    []ExtensionStatus
}

// StatsPeriod полуинтервал [From, To) по дате создания запроса. nil означает без границы.
type StatsPeriod struct {
	From *time.Time
	To   *time.Time
}

// RequesterStats сводка по одному заявителю
type RequesterStats struct {
	RequesterID  int64
	RequestCount int64
	TotalAmount  decimal.Decimal
}

// ExtensionStatuses все статусы запроса на продление в порядке жизненного цикла
var ExtensionStatuses = []ExtensionStatus{
	ExtensionPending,
	ExtensionPaymentConfirmed,
	ExtensionAdminApproved,
	ExtensionCompleted,
	ExtensionRejected,
}

// EligibleForExtension отбирает маппинги, к которым можно оформить продление:
// статус из ExtensionEligibleStatuses и нет завершенного запроса по этому маппингу.
// Дубликаты по id отбрасываются, порядок сохраняется.
func EligibleForExtension(mappings []*Mapping, completedMappingIDs map[int64]struct{}) []*Mapping {
	eligible := make(map[MappingStatus]struct{}, len(ExtensionEligibleStatuses))
	for _, s := range ExtensionEligibleStatuses {
		eligible[s] = struct{}{}
	}

	seen := make(map[int64]struct{}, len(mappings))
	result := make([]*Mapping, 0, len(mappings))

	for _, m := range mappings {
		if m == nil {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}

		if _, ok := eligible[m.Status]; !ok {
			continue
		}
		if _, done := completedMappingIDs[m.ID]; done {
			continue
		}

		result = append(result, m)
	}

	return result
}
