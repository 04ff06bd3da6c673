// Package message defines the JSON-RPC 2.0 envelope model: requests,
// responses, error objects, and the newline-delimited batch wrapper.
//
// Every envelope is serialized as compact JSON and carried as the
// payload of one protocol frame. Parsing is strict: each violation of
// the JSON-RPC object shape is a distinct sentinel error, never a
// silent coercion. Decoded envelopes copy all raw JSON out of the
// caller's byte slice, so they remain valid after the frame buffer is
// reused.
package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Version is the only supported JSON-RPC protocol version.
const Version = "2.0"

// Envelope validation faults. Each maps to one rule of the JSON-RPC
// object shape and is returned unwrapped so callers can errors.Is.
var (
	ErrUnsupportedVersion   = errors.New(`message: "jsonrpc" must be the string "2.0"`)
	ErrMissingMethod        = errors.New(`message: request has no "method" member`)
	ErrMethodShouldBeString = errors.New(`message: "method" must be a string`)
	ErrInvalidParams        = errors.New(`message: "params" must be an array or an object`)
	ErrInvalidID            = errors.New(`message: "id" must be an integer, a string, or null`)
)

// IDKind discriminates the two representable request id variants.
type IDKind uint8

const (
	IDInt IDKind = iota
	IDString
)

// ID is a request identifier: an integer or a string. A nil *ID means
// the request is a notification. The id is opaque to this layer;
// matching calls to responses is the caller's concern.
type ID struct {
	kind IDKind
	num  int64
	str  string
}

// IntID returns an integer request id.
func IntID(v int64) *ID { return &ID{kind: IDInt, num: v} }

// StringID returns a string request id.
func StringID(s string) *ID { return &ID{kind: IDString, str: s} }

// Kind reports which variant the id holds.
func (id *ID) Kind() IDKind { return id.kind }

// Int returns the integer value; zero unless Kind is IDInt.
func (id *ID) Int() int64 { return id.num }

// String renders the id for logging: the integer in decimal, or the
// string value verbatim.
func (id *ID) String() string {
	if id == nil {
		return "<notification>"
	}
	if id.kind == IDInt {
		return strconv.FormatInt(id.num, 10)
	}
	return id.str
}

// Equal reports whether two ids hold the same variant and value. Two
// nil ids are equal.
func (id *ID) Equal(other *ID) bool {
	if id == nil || other == nil {
		return id == other
	}
	return id.kind == other.kind && id.num == other.num && id.str == other.str
}

func (id *ID) MarshalJSON() ([]byte, error) {
	if id.kind == IDString {
		return json.Marshal(id.str)
	}
	return strconv.AppendInt(nil, id.num, 10), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	parsed, err := parseID(data)
	if err != nil {
		return err
	}
	if parsed == nil {
		return ErrInvalidID
	}
	*id = *parsed
	return nil
}

// parseID decodes a raw "id" value. JSON null decodes to (nil, nil):
// a null id is treated exactly like an absent one.
func parseID(raw json.RawMessage) (*ID, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, ErrInvalidID
		}
		return StringID(s), nil
	}
	// Must be an integer: floats, booleans, and composites are invalid.
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, ErrInvalidID
	}
	return IntID(n), nil
}

// ParamsKind discriminates the two representable params variants.
type ParamsKind uint8

const (
	ParamsArray ParamsKind = iota
	ParamsObject
)

// Params carries request parameters: a JSON array (by-position) or a
// JSON object (by-name). A nil *Params means the method takes no
// arguments. The raw JSON is held verbatim and passed through without
// interpretation.
type Params struct {
	kind ParamsKind
	raw  json.RawMessage
}

// ArrayParams marshals vals into by-position parameters.
func ArrayParams(vals ...any) (*Params, error) {
	raw, err := json.Marshal(vals)
	if err != nil {
		return nil, fmt.Errorf("message: marshal params: %w", err)
	}
	return &Params{kind: ParamsArray, raw: raw}, nil
}

// ObjectParams marshals v (a struct or map) into by-name parameters.
func ObjectParams(v any) (*Params, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("message: marshal params: %w", err)
	}
	p, err := parseParams(raw)
	if err != nil {
		return nil, err
	}
	if p.kind != ParamsObject {
		return nil, ErrInvalidParams
	}
	return p, nil
}

// Kind reports which variant the params hold.
func (p *Params) Kind() ParamsKind { return p.kind }

// Raw returns the parameters as raw JSON.
func (p *Params) Raw() json.RawMessage { return p.raw }

// Unmarshal decodes the parameters into v.
func (p *Params) Unmarshal(v any) error {
	return json.Unmarshal(p.raw, v)
}

func (p *Params) MarshalJSON() ([]byte, error) {
	return p.raw, nil
}

func (p *Params) UnmarshalJSON(data []byte) error {
	parsed, err := parseParams(data)
	if err != nil {
		return err
	}
	*p = *parsed
	return nil
}

func parseParams(raw json.RawMessage) (*Params, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, ErrInvalidParams
	}
	kind := ParamsArray
	switch raw[0] {
	case '[':
	case '{':
		kind = ParamsObject
	default:
		return nil, ErrInvalidParams
	}
	if !json.Valid(raw) {
		return nil, ErrInvalidParams
	}
	cp := make(json.RawMessage, len(raw))
	copy(cp, raw)
	return &Params{kind: kind, raw: cp}, nil
}

// Request is one JSON-RPC request envelope.
type Request struct {
	Method string
	Params *Params // nil when the method takes no arguments
	ID     *ID     // nil for notifications
}

// NewRequest constructs an outbound request. The method name must be
// non-empty; params and id may be nil.
func NewRequest(method string, params *Params, id *ID) (*Request, error) {
	if method == "" {
		return nil, ErrMissingMethod
	}
	return &Request{Method: method, Params: params, ID: id}, nil
}

// IsNotification reports whether the request carries no id and thus
// expects no response.
func (r *Request) IsNotification() bool { return r.ID == nil }

// wireRequest fixes the serialized member order: jsonrpc, method,
// params, id.
type wireRequest struct {
	JSONRPC string  `json:"jsonrpc"`
	Method  string  `json:"method"`
	Params  *Params `json:"params,omitempty"`
	ID      *ID     `json:"id,omitempty"`
}

func (r *Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRequest{
		JSONRPC: Version,
		Method:  r.Method,
		Params:  r.Params,
		ID:      r.ID,
	})
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var w struct {
		JSONRPC json.RawMessage `json:"jsonrpc"`
		Method  json.RawMessage `json:"method"`
		Params  json.RawMessage `json:"params"`
		ID      json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("message: request is not a JSON object: %w", err)
	}
	if err := checkVersion(w.JSONRPC); err != nil {
		return err
	}
	if w.Method == nil {
		return ErrMissingMethod
	}
	var method string
	if err := json.Unmarshal(w.Method, &method); err != nil {
		return ErrMethodShouldBeString
	}
	var params *Params
	if w.Params != nil {
		p, err := parseParams(w.Params)
		if err != nil {
			return err
		}
		params = p
	}
	id, err := parseID(w.ID)
	if err != nil {
		return err
	}
	*r = Request{Method: method, Params: params, ID: id}
	return nil
}

// checkVersion enforces that the "jsonrpc" member is present and is
// exactly the string "2.0".
func checkVersion(raw json.RawMessage) error {
	if raw == nil {
		return ErrUnsupportedVersion
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil || v != Version {
		return ErrUnsupportedVersion
	}
	return nil
}
