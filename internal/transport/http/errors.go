package http

import (
	"errors"

	apierrors "soilhub/internal/errors"
	"soilhub/internal/services"
)

// mapServiceError converts service errors into API errors. Errors it does not
// recognise are returned unchanged so the ErrorHandler can classify them;
// analysis configuration errors and parse failures take that path.
func mapServiceError(err error) error {
	var appErr *apierrors.AppError
	switch {
	case errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeParsing:
		return appErr
	case errors.Is(err, services.ErrDatasetNotFound):
		return apierrors.ErrDatasetNotFound
	case errors.Is(err, services.ErrInvalidFileType):
		return apierrors.ErrUnsupportedFormat
	case errors.Is(err, services.ErrDatasetTooLarge):
		return apierrors.ErrPayloadTooLarge
	case errors.Is(err, services.ErrEmptyDataset):
		return apierrors.ErrEmptyDataset
	case errors.Is(err, services.ErrUnreadable):
		return apierrors.ErrDatasetUnreadable.WithDetails(err.Error())
	case errors.Is(err, services.ErrStandardsNotLoaded):
		return apierrors.ErrStandardsNotLoaded
	case errors.Is(err, services.ErrInvalidExport), errors.Is(err, services.ErrInvalidInput):
		return apierrors.ErrInvalidParameter.WithDetails(err.Error())
	}
	return err
}
