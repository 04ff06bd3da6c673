package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorCode is a JSON-RPC 2.0 error code: one of the five pre-defined
// codes, or a server-defined code in [ServerErrorMin, ServerErrorMax].
type ErrorCode int

// Pre-defined JSON-RPC 2.0 error codes.
const (
	CodeParseError     ErrorCode = -32700
	CodeInvalidRequest ErrorCode = -32600
	CodeMethodNotFound ErrorCode = -32601
	CodeInvalidParams  ErrorCode = -32602
	CodeInternalError  ErrorCode = -32603
)

// Server-defined error code range.
const (
	ServerErrorMin ErrorCode = -32099
	ServerErrorMax ErrorCode = -32000
)

// Boundaries of the band reserved by the JSON-RPC specification.
// Codes inside the band that are neither pre-defined nor in the
// server range are reserved for future use.
const (
	reservedMin ErrorCode = -32768
	reservedMax ErrorCode = -32000
)

var (
	ErrReservedErrorCode = errors.New("message: error code is reserved for future use")
	ErrInvalidErrorCode  = errors.New("message: error code outside the JSON-RPC range")
	ErrInvalidErrorShape = errors.New(`message: "error" must carry an integer "code" and a string "message"`)
)

// ErrorCodeFromInt validates v against the JSON-RPC code table:
// pre-defined codes and the server range are accepted, the rest of
// the reserved band fails with ErrReservedErrorCode, and anything
// outside the band fails with ErrInvalidErrorCode.
func ErrorCodeFromInt(v int64) (ErrorCode, error) {
	c := ErrorCode(v)
	switch c {
	case CodeParseError, CodeInvalidRequest, CodeMethodNotFound, CodeInvalidParams, CodeInternalError:
		return c, nil
	}
	if c >= ServerErrorMin && c <= ServerErrorMax {
		return c, nil
	}
	if c >= reservedMin && c < reservedMax {
		return 0, ErrReservedErrorCode
	}
	return 0, ErrInvalidErrorCode
}

// IsServerError reports whether the code lies in the server-defined
// range.
func (c ErrorCode) IsServerError() bool {
	return c >= ServerErrorMin && c <= ServerErrorMax
}

func (c ErrorCode) String() string {
	switch c {
	case CodeParseError:
		return "parse error"
	case CodeInvalidRequest:
		return "invalid request"
	case CodeMethodNotFound:
		return "method not found"
	case CodeInvalidParams:
		return "invalid params"
	case CodeInternalError:
		return "internal error"
	}
	if c.IsServerError() {
		return "server error"
	}
	return "unknown error"
}

// ErrorObject is the "error" member of an error response.
type ErrorObject struct {
	Code    ErrorCode
	Message string
	Data    json.RawMessage // optional, passed through opaquely
}

// NewError constructs an error object with the given code and
// human-readable message.
func NewError(code ErrorCode, msg string) *ErrorObject {
	return &ErrorObject{Code: code, Message: msg}
}

// WithData returns a copy of the error object with data attached.
func (e *ErrorObject) WithData(data any) *ErrorObject {
	raw, err := json.Marshal(data)
	if err != nil {
		return e
	}
	return &ErrorObject{Code: e.Code, Message: e.Message, Data: raw}
}

// Error implements the error interface.
func (e *ErrorObject) Error() string {
	return fmt.Sprintf("jsonrpc: %s (code %d)", e.Message, e.Code)
}

// Is matches error objects by code.
func (e *ErrorObject) Is(target error) bool {
	t, ok := target.(*ErrorObject)
	return ok && e.Code == t.Code
}

type wireError struct {
	Code    ErrorCode       `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *ErrorObject) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireError{Code: e.Code, Message: e.Message, Data: e.Data})
}

func (e *ErrorObject) UnmarshalJSON(data []byte) error {
	var w struct {
		Code    json.RawMessage `json:"code"`
		Message json.RawMessage `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return ErrInvalidErrorShape
	}
	if w.Code == nil || w.Message == nil {
		return ErrInvalidErrorShape
	}
	var n int64
	if err := json.Unmarshal(w.Code, &n); err != nil {
		return ErrInvalidErrorShape
	}
	code, err := ErrorCodeFromInt(n)
	if err != nil {
		return err
	}
	var msg string
	if err := json.Unmarshal(w.Message, &msg); err != nil {
		return ErrInvalidErrorShape
	}
	*e = ErrorObject{Code: code, Message: msg, Data: w.Data}
	return nil
}
