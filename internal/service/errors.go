package service

import (
	"errors"
	"fmt"

	"s3-explorer/internal/model"
)

// publicMessage renders err for per-item error lists returned to clients.
// Permission failures never reveal why they were denied.
func publicMessage(err error) string {
	var storageErr *model.StorageError
	switch {
	case errors.Is(err, model.ErrForbidden):
		return model.ErrForbidden.Error()
	case errors.As(err, &storageErr):
		return fmt.Sprintf("storage error %s: %s", storageErr.Code, storageErr.Message)
	default:
		return err.Error()
	}
}
