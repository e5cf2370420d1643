package errors

// ErrorCode identifies a failure category of the overlay engine.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

const (
	// CodeOK is returned by GetCode for a nil error.
	CodeOK ErrorCode = "OK"

	// CodeUnknown is the fallback for errors that did not originate in this
	// module and carry no classification.
	CodeUnknown ErrorCode = "OVL_000"

	// CodeInternal marks unexpected failures with no more specific code.
	CodeInternal ErrorCode = "OVL_001"

	// CodeConfig marks invalid or unloadable configuration.
	CodeConfig ErrorCode = "OVL_002"

	// CodeNotFound marks a stats lookup miss for a cell identifier. It is
	// recovered locally into a displayable detail payload, never surfaced
	// as a crash.
	CodeNotFound ErrorCode = "OVL_010"

	// CodeValidation marks event creation with a blank title or an
	// unparseable local datetime. Surfaced to the submitting UI with the
	// form state preserved.
	CodeValidation ErrorCode = "OVL_011"

	// CodeProtocol marks malformed JSON after the advisory stream sentinel.
	// Terminal for that turn; prior turns are unaffected.
	CodeProtocol ErrorCode = "OVL_012"

	// CodeTransport marks a network failure during any fetch or stream.
	CodeTransport ErrorCode = "OVL_013"

	// CodeGeometry marks an unresolvable cell identifier. Recovered locally
	// by skipping that one cell during rendering.
	CodeGeometry ErrorCode = "OVL_014"
)

// userMessage maps codes to the short, non-technical text shown to end
// users. Raw error detail stays in logs.
var userMessage = map[ErrorCode]string{
	CodeUnknown:    "something went wrong",
	CodeInternal:   "something went wrong",
	CodeConfig:     "the map client is misconfigured",
	CodeNotFound:   "stats not found",
	CodeValidation: "please check the fields and try again",
	CodeProtocol:   "the advisory reply could not be read",
	CodeTransport:  "the map service is unreachable",
	CodeGeometry:   "this area could not be drawn",
}

// UserMessage returns the end-user text for the first coded error in err's
// chain, or the generic fallback when err carries no code.
func UserMessage(err error) string {
	if msg, ok := userMessage[GetCode(err)]; ok {
		return msg
	}
	return userMessage[CodeUnknown]
}
