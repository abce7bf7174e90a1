package handler

// UserError is a failure the caller can act on. Message is shown to them as
// is; Cause is only logged.
type UserError struct {
	Message string
	Cause   error
}

func (e *UserError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

var _ error = (*UserError)(nil)
