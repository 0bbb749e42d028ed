package util

import "errors"

var (
	ErrPermissionDenied  = errors.New("permission denied")
	ErrWorksheetNotFound = errors.New("worksheet not found")
)
