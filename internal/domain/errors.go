package domain

import "errors"

// Ошибки хранилища. Сервисы оборачивают их через fmt.Errorf("...: %w"),
// обработчики сопоставляют через errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrQuotaExceeded   = errors.New("storage quota exceeded")
	ErrTransferFailed  = errors.New("object transfer failed")
	ErrCancelled       = errors.New("cancelled")
	ErrIntegrity       = errors.New("cannot scan folders: folder hierarchy is corrupted")
	ErrAccessDenied    = errors.New("access denied")
	ErrNotTrashed      = errors.New("object is not in trash")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNothingExported = errors.New("no items could be exported")
)
