package extension

import "errors"

var (
	// ErrRequestNotFound возвращается, когда запрос на продление не найден
	ErrRequestNotFound = errors.New("extension.repository: extension request not found")

	// ErrOpenRequestExists возвращается, когда для маппинга уже есть незавершенный запрос
	ErrOpenRequestExists = errors.New("extension.repository: mapping already has an open extension request")

	// ErrConcurrentUpdate возвращается, когда статус изменился между чтением и записью
	ErrConcurrentUpdate = errors.New("extension.repository: extension request was modified concurrently")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("extension.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("extension.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("extension.repository: failed to scan row")
)
