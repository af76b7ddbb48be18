package mappings

import "errors"

var (
	// ErrMappingNotFound возвращается, когда маппинг не найден
	ErrMappingNotFound = errors.New("mappings: mapping not found")

	// ErrUserNotFound возвращается, когда консультант или клиент не найден в UserService
	ErrUserNotFound = errors.New("mappings: user not found")

	// ErrInvalidUserRole возвращается, когда у пользователя неподходящая роль
	ErrInvalidUserRole = errors.New("mappings: user has invalid role")

	// ErrConcurrentUpdate возвращается, когда маппинг изменили параллельно
	ErrConcurrentUpdate = errors.New("mappings: mapping was modified concurrently")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("mappings: invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("mappings: internal error")
)
