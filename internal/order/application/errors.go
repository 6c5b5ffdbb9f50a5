package application

// The four error kinds the service surfaces. Transports branch on them with
// errors.As; anything else escaping a use case is a bug.

// ValidationError rejects malformed or business-rule-violating input.
type ValidationError struct {
	Message string
	Field   string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError reports a missing resource.
type NotFoundError struct {
	Resource string
	ID       string
	Message  string
}

func (e *NotFoundError) Error() string { return e.Message }

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Message string
	Reason  string
}

func (e *ConflictError) Error() string { return e.Message }

// InfraError wraps a dependency failure. Cause is for logs, never for
// client responses.
type InfraError struct {
	Message string
	Cause   error
}

func (e *InfraError) Error() string { return e.Message }

func (e *InfraError) Unwrap() error { return e.Cause }
