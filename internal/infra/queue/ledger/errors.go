package ledger

import "errors"

var (
	// ErrEnqueue возвращается, когда задачу не удалось поставить в очередь
	ErrEnqueue = errors.New("ledger.queue: failed to enqueue posting")

	// ErrInvalidPayload возвращается при некорректном теле задачи
	ErrInvalidPayload = errors.New("ledger.queue: invalid task payload")

	// ErrDelivery возвращается при синхронной доставке, если учетная система не приняла проводку
	ErrDelivery = errors.New("ledger.queue: failed to deliver posting")
)
