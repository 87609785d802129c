package errors

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// UnauthorizedError is returned when a reviewer identity is not bound to any
// slot. Message is safe to show to the caller.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

func NewUnauthorizedError(message string) *UnauthorizedError {
	return &UnauthorizedError{Message: message}
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

// DependencyError reports a failure of the store, blob storage, notifier or
// translator. The cause is kept for logging and never sent to clients.
type DependencyError struct {
	Message string
	Cause   error
}

func (e *DependencyError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *DependencyError) Unwrap() error {
	return e.Cause
}

func NewDependencyError(message string, cause error) *DependencyError {
	return &DependencyError{Message: message, Cause: cause}
}
