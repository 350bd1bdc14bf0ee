package services

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type ConflictError struct{ Message string }

func (e *ConflictError) Error() string { return e.Message }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type ForbiddenError struct{ Message string }

func (e *ForbiddenError) Error() string { return e.Message }

// DataUnavailableError means the questions or cards for a session could not
// be obtained, or there were none.
type DataUnavailableError struct {
	Message string
	Err     error
}

func (e *DataUnavailableError) Error() string { return e.Message }

func (e *DataUnavailableError) Unwrap() error { return e.Err }

// UpstreamError is a failed call to the LMS backend on the user's behalf.
type UpstreamError struct {
	Message string
	Err     error
}

func (e *UpstreamError) Error() string { return e.Message }

func (e *UpstreamError) Unwrap() error { return e.Err }
