package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MappingStatus represents the lifecycle state of a consultant-client package
type MappingStatus string

const (
	MappingPendingPayment   MappingStatus = "PENDING_PAYMENT"
	MappingPaymentConfirmed MappingStatus = "PAYMENT_CONFIRMED"
	MappingDepositPending   MappingStatus = "DEPOSIT_PENDING"
	MappingActive           MappingStatus = "ACTIVE"
	MappingInactive         MappingStatus = "INACTIVE"
)

// legacyActivePending старое название состояния ожидания одобрения администратором
const legacyActivePending = "ACTIVE_PENDING"

// ParseMappingStatus converts a stored label into the canonical status.
// ACTIVE_PENDING and DEPOSIT_PENDING denote the same state and both read as DEPOSIT_PENDING.
func ParseMappingStatus(s string) (MappingStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(MappingPendingPayment):
		return MappingPendingPayment, nil
	case string(MappingPaymentConfirmed):
		return MappingPaymentConfirmed, nil
	case string(MappingDepositPending), legacyActivePending:
		return MappingDepositPending, nil
	case string(MappingActive):
		return MappingActive, nil
	case string(MappingInactive):
		return MappingInactive, nil
	default:
		return "", fmt.Errorf("%w: mapping status %q", ErrInvalidStatus, s)
	}
}

// ConfirmPayment PENDING_PAYMENT -> PAYMENT_CONFIRMED
func (s MappingStatus) ConfirmPayment() (MappingStatus, error) {
	if s != MappingPendingPayment {
		return s, fmt.Errorf("%w: confirm payment from %s", ErrInvalidTransition, s)
	}
	return MappingPaymentConfirmed, nil
}

// ConfirmDeposit PAYMENT_CONFIRMED -> DEPOSIT_PENDING
func (s MappingStatus) ConfirmDeposit() (MappingStatus, error) {
	if s != MappingPaymentConfirmed {
		return s, fmt.Errorf("%w: confirm deposit from %s", ErrInvalidTransition, s)
	}
	return MappingDepositPending, nil
}

// Approve DEPOSIT_PENDING -> ACTIVE. Only this transition makes a mapping schedulable.
func (s MappingStatus) Approve() (MappingStatus, error) {
	if s != MappingDepositPending {
		return s, fmt.Errorf("%w: approve from %s", ErrInvalidTransition, s)
	}
	return MappingActive, nil
}

// Terminate any state except INACTIVE -> INACTIVE
func (s MappingStatus) Terminate() (MappingStatus, error) {
	if s == MappingInactive {
		return s, fmt.Errorf("%w: terminate from %s", ErrInvalidTransition, s)
	}
	return MappingInactive, nil
}

// IsPrePayment true until the payment is confirmed and a ledger entry exists
func (s MappingStatus) IsPrePayment() bool {
	return s == MappingPendingPayment
}

// IsPaid true when money has been received for the package
func (s MappingStatus) IsPaid() bool {
	return s == MappingPaymentConfirmed || s == MappingDepositPending || s == MappingActive
}

// BrowsableMappingStatuses статусы, в которых маппинг показывается при выборе сессии.
// Создать расписание можно только в ACTIVE.
var BrowsableMappingStatuses = []MappingStatus{
	MappingPendingPayment,
	MappingPaymentConfirmed,
	MappingDepositPending,
	MappingActive,
}

// ExtensionEligibleStatuses статусы маппингов, к которым можно оформить продление
var ExtensionEligibleStatuses = BrowsableMappingStatuses

// PaymentMethod способ оплаты пакета
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "CASH"
	PaymentTransfer PaymentMethod = "TRANSFER"
	PaymentCard     PaymentMethod = "CARD"
)

// ParsePaymentMethod нормализует способ оплаты
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(strings.ToUpper(strings.TrimSpace(s))) {
	case PaymentCash:
		return PaymentCash, nil
	case PaymentTransfer:
		return PaymentTransfer, nil
	case PaymentCard:
		return PaymentCard, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, s)
	}
}

// RequirePaymentReference reference is mandatory unless the payment is in cash
func RequirePaymentReference(method PaymentMethod, reference string) error {
	if method != PaymentCash && strings.TrimSpace(reference) == "" {
		return ErrMissingPaymentReference
	}
	return nil
}

// Mapping represents a billable consultant-client service package
type Mapping struct {
	ID           int64
	ConsultantID int64
	ClientID     int64
	Status       MappingStatus

	TotalSessions     int
	UsedSessions      int
	RemainingSessions int

	PackageName  string
	PackagePrice decimal.Decimal

	PaymentMethod      PaymentMethod
	PaymentReference   string
	PaymentAmount      decimal.NullDecimal
	PaymentConfirmedAt *time.Time

	DepositReference   *string
	DepositConfirmedAt *time.Time

	ApprovedBy *string
	ApprovedAt *time.Time

	TerminationReason *string
	TerminatedAt      *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// MappingTerms редактируемые условия пакета
type MappingTerms struct {
	PackageName      string
	PackagePrice     decimal.Decimal
	TotalSessions    int
	PaymentMethod    PaymentMethod
	PaymentReference string
}

// Validate проверяет условия пакета
func (t MappingTerms) Validate() error {
	if strings.TrimSpace(t.PackageName) == "" || len(t.PackageName) > MaxPackageNameLength {
		return fmt.Errorf("%w: package name length must be 1..%d", ErrInvalidPackage, MaxPackageNameLength)
	}
	if t.PackagePrice.IsNegative() {
		return ErrInvalidPrice
	}
	if t.TotalSessions < MinPackageSessions || t.TotalSessions > MaxPackageSessions {
		return fmt.Errorf("%w: total sessions must be %d..%d", ErrInvalidSessionCount, MinPackageSessions, MaxPackageSessions)
	}
	if t.PaymentMethod != "" {
		if _, err := ParsePaymentMethod(string(t.PaymentMethod)); err != nil {
			return err
		}
	}
	return nil
}

// NewMapping создает маппинг в состоянии PENDING_PAYMENT
func NewMapping(consultantID, clientID int64, terms MappingTerms) (*Mapping, error) {
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	return &Mapping{
		ConsultantID:      consultantID,
		ClientID:          clientID,
		Status:            MappingPendingPayment,
		TotalSessions:     terms.TotalSessions,
		UsedSessions:      0,
		RemainingSessions: terms.TotalSessions,
		PackageName:       strings.TrimSpace(terms.PackageName),
		PackagePrice:      terms.PackagePrice,
		PaymentMethod:     terms.PaymentMethod,
		PaymentReference:  strings.TrimSpace(terms.PaymentReference),
	}, nil
}

// clone returns a shallow copy; transitions never mutate the receiver
func (m *Mapping) clone() *Mapping {
	cp := *m
	return &cp
}

// IsUsable returns true if schedules may be created against the mapping
func (m *Mapping) IsUsable() bool {
	return m.Status == MappingActive
}

// IsBrowsable returns true if the mapping is shown in schedule selection (display only)
func (m *Mapping) IsBrowsable() bool {
	for _, s := range BrowsableMappingStatuses {
		if m.Status == s {
			return true
		}
	}
	return false
}

// Edit replaces the package terms. Allowed only before the payment is confirmed.
func (m *Mapping) Edit(terms MappingTerms) (*Mapping, error) {
	if !m.Status.IsPrePayment() {
		return nil, ErrInvalidStateForEdit
	}
	if err := terms.Validate(); err != nil {
		return nil, err
	}

	next := m.clone()
	next.PackageName = strings.TrimSpace(terms.PackageName)
	next.PackagePrice = terms.PackagePrice
	next.TotalSessions = terms.TotalSessions
	next.RemainingSessions = terms.TotalSessions - next.UsedSessions
	next.PaymentMethod = terms.PaymentMethod
	next.PaymentReference = strings.TrimSpace(terms.PaymentReference)
	return next, nil
}

// ConfirmPayment records the payment and moves the mapping to PAYMENT_CONFIRMED
func (m *Mapping) ConfirmPayment(method PaymentMethod, reference string, amount decimal.NullDecimal, at time.Time) (*Mapping, error) {
	status, err := m.Status.ConfirmPayment()
	if err != nil {
		return nil, err
	}
	if err := RequirePaymentReference(method, reference); err != nil {
		return nil, err
	}
	if amount.Valid && amount.Decimal.IsNegative() {
		return nil, ErrInvalidPrice
	}

	next := m.clone()
	next.Status = status
	next.PaymentMethod = method
	next.PaymentReference = strings.TrimSpace(reference)
	next.PaymentAmount = amount
	next.PaymentConfirmedAt = &at
	return next, nil
}

// IsPaymentReplay true if the payment was already confirmed with the same method and reference
func (m *Mapping) IsPaymentReplay(method PaymentMethod, reference string) bool {
	return !m.Status.IsPrePayment() &&
		m.PaymentConfirmedAt != nil &&
		m.PaymentMethod == method &&
		m.PaymentReference == strings.TrimSpace(reference)
}

// ChargedAmount сумма для записи в учет: фактически оплаченная, иначе цена пакета
func (m *Mapping) ChargedAmount() decimal.Decimal {
	if m.PaymentAmount.Valid {
		return m.PaymentAmount.Decimal
	}
	return m.PackagePrice
}

// HasAmountMismatch true if the paid amount differs from the package price
func (m *Mapping) HasAmountMismatch() bool {
	return m.PaymentAmount.Valid && !m.PaymentAmount.Decimal.Equal(m.PackagePrice)
}

// ConfirmDeposit moves the mapping to DEPOSIT_PENDING
func (m *Mapping) ConfirmDeposit(reference string, at time.Time) (*Mapping, error) {
	status, err := m.Status.ConfirmDeposit()
	if err != nil {
		return nil, err
	}

	next := m.clone()
	next.Status = status
	if ref := strings.TrimSpace(reference); ref != "" {
		next.DepositReference = &ref
	}
	next.DepositConfirmedAt = &at
	return next, nil
}

// Approve activates the mapping
func (m *Mapping) Approve(adminName string, at time.Time) (*Mapping, error) {
	status, err := m.Status.Approve()
	if err != nil {
		return nil, err
	}

	next := m.clone()
	next.Status = status
	if name := strings.TrimSpace(adminName); name != "" {
		next.ApprovedBy = &name
	}
	next.ApprovedAt = &at
	return next, nil
}

// UseSession consumes one session of an active mapping
func (m *Mapping) UseSession() (*Mapping, error) {
	if !m.IsUsable() {
		return nil, ErrMappingNotUsable
	}
	if m.RemainingSessions <= 0 {
		return nil, ErrNoRemainingSessions
	}

	next := m.clone()
	next.UsedSessions++
	next.RemainingSessions--
	return next, nil
}

// AddSessions increases the package quota by n sessions
func (m *Mapping) AddSessions(n int) (*Mapping, error) {
	if n < MinExtensionSessions || n > MaxExtensionSessions {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSessionCount, n)
	}

	next := m.clone()
	next.TotalSessions += n
	next.RemainingSessions += n
	return next, nil
}

// ShouldDeactivate true when the last session is consumed and no extension is in progress
func (m *Mapping) ShouldDeactivate(hasPendingExtension bool) bool {
	return m.Status == MappingActive && m.RemainingSessions == 0 && !hasPendingExtension
}

// Deactivate implicit ACTIVE -> INACTIVE after the quota is exhausted
func (m *Mapping) Deactivate() (*Mapping, error) {
	if m.Status != MappingActive {
		return nil, fmt.Errorf("%w: deactivate from %s", ErrInvalidTransition, m.Status)
	}

	next := m.clone()
	next.Status = MappingInactive
	return next, nil
}

// Terminate ends the mapping early. Unused sessions are written off and the
// refund for them is returned; an unpaid mapping refunds nothing.
func (m *Mapping) Terminate(reason string, at time.Time) (*Mapping, decimal.Decimal, error) {
	status, err := m.Status.Terminate()
	if err != nil {
		return nil, decimal.Zero, err
	}

	refund := decimal.Zero
	if m.Status.IsPaid() && m.TotalSessions > 0 && m.RemainingSessions > 0 {
		refund = m.ChargedAmount().
			Mul(decimal.NewFromInt(int64(m.RemainingSessions))).
			Div(decimal.NewFromInt(int64(m.TotalSessions))).
			Round(2)
	}

	next := m.clone()
	next.Status = status
	next.TotalSessions = next.UsedSessions
	next.RemainingSessions = 0
	if r := strings.TrimSpace(reason); r != "" {
		next.TerminationReason = &r
	}
	next.TerminatedAt = &at
	return next, refund, nil
}

// MappingsFilter фильтр для списка маппингов
type MappingsFilter struct {
	ConsultantID *int64
	ClientID     *int64
	Statuses     []MappingStatus // пустой - все статусы
}
