package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownProductType = errors.New("unknown product type")
	ErrUnknownCMSPage     = errors.New("unknown cms page")
	ErrDuplicate          = errors.New("already exists")
)
