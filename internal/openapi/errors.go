package openapi

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	NotFoundError    ErrorCode = "NotFoundError"
	FetchError       ErrorCode = "FetchError"
	ParseError       ErrorCode = "ParseError"
	InvalidSpecError ErrorCode = "InvalidSpecError"
)

// SpecError is returned by Load for every failure.
type SpecError struct {
	Code     ErrorCode
	Message  string
	Location string // file path or URL
	Cause    error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Is lets callers match on the code alone: errors.Is(err, &SpecError{Code: ParseError}).
func (e *SpecError) Is(target error) bool {
	t, ok := target.(*SpecError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == "" && t.Cause == nil
}
