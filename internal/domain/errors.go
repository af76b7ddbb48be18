package domain

import "errors"

var (
	// ErrInvalidTransition возвращается, когда событие недопустимо в текущем состоянии
	ErrInvalidTransition = errors.New("domain: invalid state transition")

	// ErrInvalidStatus возвращается при неизвестном значении статуса
	ErrInvalidStatus = errors.New("domain: unknown status")

	// ErrMissingPaymentReference возвращается, когда для безналичной оплаты не указан номер платежа
	ErrMissingPaymentReference = errors.New("domain: payment reference is required for non-cash payment")

	// ErrInvalidPaymentMethod возвращается при неизвестном способе оплаты
	ErrInvalidPaymentMethod = errors.New("domain: unknown payment method")

	// ErrInvalidStateForEdit возвращается при попытке изменить маппинг после подтверждения оплаты
	ErrInvalidStateForEdit = errors.New("domain: mapping can be edited only before payment confirmation")

	// ErrMappingNotUsable возвращается, когда маппинг не активен
	ErrMappingNotUsable = errors.New("domain: mapping is not usable")

	// ErrNoRemainingSessions возвращается, когда у маппинга не осталось сессий
	ErrNoRemainingSessions = errors.New("domain: no remaining sessions")

	// ErrInvalidSessionCount возвращается, когда количество сессий вне допустимого диапазона
	ErrInvalidSessionCount = errors.New("domain: session count is out of range")

	// ErrInvalidPackage возвращается при некорректных условиях пакета
	ErrInvalidPackage = errors.New("domain: invalid package terms")

	// ErrInvalidPrice возвращается при отрицательной цене
	ErrInvalidPrice = errors.New("domain: price must not be negative")

	// ErrInvalidRequester возвращается, когда не указан автор запроса на продление
	ErrInvalidRequester = errors.New("domain: requester is required")

	// ErrAlreadyCompleted возвращается при повторном завершении запроса на продление
	ErrAlreadyCompleted = errors.New("domain: extension request is already completed")
)
