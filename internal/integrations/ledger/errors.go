package ledger

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("ledger client: internal error")

	// ErrUnavailable учетная система недоступна или ответила 5xx, доставку можно повторить
	ErrUnavailable = errors.New("ledger client: service unavailable")

	// ErrRejected учетная система отклонила проводку, повтор не поможет
	ErrRejected = errors.New("ledger client: posting rejected")
)
