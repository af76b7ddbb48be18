package mapping

import "errors"

var (
	// ErrMappingNotFound возвращается, когда маппинг не найден
	ErrMappingNotFound = errors.New("mapping.repository: mapping not found")

	// ErrConcurrentUpdate возвращается, когда строка изменилась между чтением и записью
	ErrConcurrentUpdate = errors.New("mapping.repository: mapping was modified concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("mapping.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("mapping.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("mapping.repository: failed to scan row")
)
