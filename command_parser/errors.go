package command_parser

// ParseError reports a rejected command. Message is user facing; Field
// names the offending parameter when the failure is tied to one.
type ParseError struct {
	Field   string
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

func newParseError(field, message string) *ParseError {
	return &ParseError{Field: field, Message: message}
}
