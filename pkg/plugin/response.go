package plugin

import "fmt"

// Error codes shared by the bridge and plugins.
const (
	// CodeUnknownMethod is returned for methods missing from the dispatch
	// table. Plugins conventionally reuse it for rejected params as well.
	CodeUnknownMethod int32 = -143

	CodeParseError     int32 = -32700
	CodeInvalidRequest int32 = -32600
	CodeInternalError  int32 = -32603
)

const MessageUnknownMethod = "Unknown Method"

// Error is the structured failure carried by a failed Response.
type Error struct {
	Code    int32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("plugin error %d: %s", e.Code, e.Message)
}

// Response is the outcome of one method invocation: either a success value or
// a structured failure. The zero value is a successful null result.
// A Response cannot be modified once built.
type Response struct {
	result any
	err    *Error
}

// Success wraps a JSON-marshallable result.
func Success(result any) Response {
	return Response{result: result}
}

// Failure builds a failed response with the given code and message.
func Failure(code int32, message string) Response {
	return Response{err: &Error{Code: code, Message: message}}
}

// UnknownMethod is the failure returned for unregistered method names.
func UnknownMethod() Response {
	return Failure(CodeUnknownMethod, MessageUnknownMethod)
}

func (r Response) Failed() bool {
	return r.err != nil
}

// Result returns the success value, nil for failures.
func (r Response) Result() any {
	return r.result
}

// Err returns a copy of the failure, nil for successes.
func (r Response) Err() *Error {
	if r.err == nil {
		return nil
	}
	e := *r.err
	return &e
}

func (r Response) Code() int32 {
	if r.err == nil {
		return 0
	}
	return r.err.Code
}

func (r Response) Message() string {
	if r.err == nil {
		return ""
	}
	return r.err.Message
}

func (r Response) String() string {
	if r.err != nil {
		return fmt.Sprintf("Failure(%d, %q)", r.err.Code, r.err.Message)
	}
	return fmt.Sprintf("Success(%v)", r.result)
}
