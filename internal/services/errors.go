package services

import "errors"

// Service errors. Handlers map these onto API errors.
var (
	// Dataset errors
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrEmptyDataset    = errors.New("dataset is empty")
	ErrDatasetTooLarge = errors.New("dataset exceeds upload limit")
	ErrUnreadable      = errors.New("dataset could not be read")

	// Analysis errors
	ErrStandardsNotLoaded = errors.New("standards table not loaded")
	ErrInvalidExport      = errors.New("invalid export format")

	// General errors
	ErrInvalidInput = errors.New("invalid input")
)
