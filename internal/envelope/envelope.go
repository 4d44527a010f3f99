// Package envelope converts between the JSON-RPC shaped text exchanged with
// the host and plugin.Response values.
package envelope

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gobridge.szuro.net/pkg/plugin"
)

const Version = "2.0"

var ErrMalformedRequest = errors.New("malformed request")

// DecodeError describes why a request could not be decoded. It matches
// ErrMalformedRequest with errors.Is.
type DecodeError struct {
	Code   int32
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedRequest, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return ErrMalformedRequest
}

// Response converts the error into the failure sent back to the caller.
func (e *DecodeError) Response() plugin.Response {
	switch e.Code {
	case plugin.CodeParseError:
		return plugin.Failure(e.Code, "Parse error")
	default:
		return plugin.Failure(e.Code, "Invalid Request")
	}
}

// Request is a decoded inbound call.
type Request struct {
	Method string
	// Params is the raw JSON text of the params member, "null" when absent.
	Params string
	ID     uint64
}

// Decode parses request text. It never trusts the input and never panics;
// all failures are *DecodeError.
func Decode(text string) (Request, error) {
	if !gjson.Valid(text) {
		return Request{}, &DecodeError{Code: plugin.CodeParseError, Reason: "not valid JSON"}
	}

	root := gjson.Parse(text)
	if !root.IsObject() {
		return Request{}, &DecodeError{Code: plugin.CodeInvalidRequest, Reason: "request is not an object"}
	}

	method := root.Get("method")
	if method.Type != gjson.String {
		return Request{}, &DecodeError{Code: plugin.CodeInvalidRequest, Reason: "method missing or not a string"}
	}

	id, ok := requestID(root.Get("id"))
	if !ok {
		return Request{}, &DecodeError{Code: plugin.CodeInvalidRequest, Reason: "id missing or not an unsigned integer"}
	}

	params := root.Get("params").Raw
	if params == "" {
		params = "null"
	}

	return Request{Method: method.Str, Params: params, ID: id}, nil
}

// SalvageID recovers the request id from text that failed to decode. It
// works on invalid JSON as long as the id member precedes the damage.
func SalvageID(text string) (uint64, bool) {
	return requestID(gjson.Get(text, "id"))
}

func requestID(v gjson.Result) (uint64, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	// plain integers are parsed from the raw text to keep precision above 2^53
	if id, err := strconv.ParseUint(v.Raw, 10, 64); err == nil {
		return id, true
	}
	// 1e3 or 4.0; 1<<64 is exact as a float64, MaxUint64 is not
	f := v.Float()
	if f < 0 || f != math.Trunc(f) || f >= 1<<64 {
		return 0, false
	}
	return uint64(f), true
}

// Encode renders resp as a JSON-RPC response with the given id.
func Encode(id uint64, resp plugin.Response) string {
	return encode(id, resp)
}

// EncodeUnidentified renders resp with a null id, for requests whose id
// could not be recovered.
func EncodeUnidentified(resp plugin.Response) string {
	return encode(nil, resp)
}

func encode(id any, resp plugin.Response) string {
	out, _ := sjson.Set(`{"jsonrpc":"`+Version+`"}`, "id", id)
	if resp.Failed() {
		return withError(out, resp.Code(), resp.Message())
	}
	result := resp.Result()
	if !finite(result) {
		return withError(out, plugin.CodeInternalError, errNotSerializable)
	}
	withResult, err := sjson.Set(out, "result", result)
	if err != nil {
		return withError(out, plugin.CodeInternalError, errNotSerializable)
	}
	return withResult
}

const errNotSerializable = "Internal error: result is not serializable"

// finite rejects NaN and infinities, which sjson writes as bare tokens.
// Nested values go through encoding/json, which refuses them itself.
func finite(v any) bool {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	default:
		return true
	}
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func withError(out string, code int32, message string) string {
	out, _ = sjson.Set(out, "error.code", code)
	out, _ = sjson.Set(out, "error.message", message)
	return out
}
