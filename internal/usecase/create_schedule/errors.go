package create_schedule

import "errors"

var (
	// ErrMappingNotFound возвращается, когда маппинг не найден
	ErrMappingNotFound = errors.New("create_schedule: mapping not found")

	// ErrMappingNotUsable возвращается, когда маппинг не в статусе ACTIVE
	ErrMappingNotUsable = errors.New("create_schedule: mapping is not usable")

	// ErrNoRemainingSessions возвращается, когда в пакете не осталось сессий
	ErrNoRemainingSessions = errors.New("create_schedule: no remaining sessions")

	// ErrTimeConflict возвращается, когда время пересекается с другой сессией консультанта
	// или перерыв между ними меньше буфера
	ErrTimeConflict = errors.New("create_schedule: time conflicts with another session")

	// ErrInvalidDate возвращается при дате в прошлом
	ErrInvalidDate = errors.New("create_schedule: invalid schedule date")

	// ErrTooLateToBook возвращается, когда время начала сегодня уже прошло
	ErrTooLateToBook = errors.New("create_schedule: start time has already passed")

	// ErrConcurrentUpdate возвращается, когда маппинг изменился параллельно
	ErrConcurrentUpdate = errors.New("create_schedule: mapping was modified concurrently")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_schedule: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_schedule: internal error")
)
