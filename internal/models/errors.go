package models

// ValidationError reports a field that failed validation. It is raised before
// any state change or network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}
