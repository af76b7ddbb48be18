package get_available_slots

import "errors"

var (
	// ErrMappingNotFound возвращается, когда маппинг не найден
	ErrMappingNotFound = errors.New("get_available_slots: mapping not found")

	// ErrMappingNotBrowsable возвращается для завершенного маппинга
	ErrMappingNotBrowsable = errors.New("get_available_slots: mapping is closed")

	// ErrInvalidDate возвращается при дате в прошлом
	ErrInvalidDate = errors.New("get_available_slots: invalid date")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("get_available_slots: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("get_available_slots: internal error")
)
