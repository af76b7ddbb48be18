package extensions

import "errors"

var (
	// ErrRequestNotFound возвращается, когда запрос на продление не найден
	ErrRequestNotFound = errors.New("extensions: extension request not found")

	// ErrMappingNotFound возвращается, когда маппинг не найден
	ErrMappingNotFound = errors.New("extensions: mapping not found")

	// ErrMappingNotEligible возвращается, когда маппинг нельзя продлить в текущем статусе
	ErrMappingNotEligible = errors.New("extensions: mapping is not eligible for extension")

	// ErrPendingRequestExists возвращается, когда у маппинга уже есть незавершенный запрос
	ErrPendingRequestExists = errors.New("extensions: mapping already has an open extension request")

	// ErrConcurrentUpdate возвращается, когда запрос или маппинг изменили параллельно
	ErrConcurrentUpdate = errors.New("extensions: request was modified concurrently")

	// ErrUserNotFound возвращается, когда пользователь не найден в UserService
	ErrUserNotFound = errors.New("extensions: user not found")

	// ErrAdminRequired возвращается, когда решение по запросу принимает не администратор
	ErrAdminRequired = errors.New("extensions: administrator role required")

	// ErrRequesterNotAllowed возвращается, когда автор запроса не участник маппинга и не администратор
	ErrRequesterNotAllowed = errors.New("extensions: requester is not a mapping participant")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("extensions: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("extensions: internal error")
)
