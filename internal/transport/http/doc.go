// Package http implements the HTTP handlers of the soilhub web service.
// Handlers stay thin: they parse and validate the request, call a service
// and render the result or an RFC 7807 problem.
//
// # Routes
//
//	GET    /api/datasets                        list uploaded datasets
//	POST   /api/datasets                        upload (multipart "file", optional "name")
//	GET    /api/datasets/{id}                   dataset metadata
//	DELETE /api/datasets/{id}                   remove dataset and file
//	GET    /api/datasets/{id}/preview?limit=    first rows and column profile
//	POST   /api/datasets/{id}/analysis          run an exceedance analysis
//	GET    /api/datasets/{id}/analysis/export   download the analysis as csv or xlsx
//	GET    /api/datasets/{id}/diagnostics       region and phase classification counts
//	GET    /api/items                           item catalog
//	GET    /api/health, /api/health/ready, /api/health/live, /api/version
//
// The notification socket at /ws and /metrics are mounted by package app.
//
// Successful JSON responses use the envelope
//
//	{"status": "success", "data": ..., "count": 2}
//
// Service errors are mapped onto API errors by mapServiceError. Analysis
// configuration errors, such as a dataset without a land category column,
// are passed to the ErrorHandler unchanged and answered with 422.
//
// # Testing
//
// Handlers are tested with httptest against testify mocks of the service
// interfaces in service_interfaces.go.
package http
