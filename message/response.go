package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMissingID reports a success response without an "id" member.
	// Error responses may omit the id (null when the request itself
	// was unparseable); success responses never may.
	ErrMissingID = errors.New(`message: success response has no "id" member`)

	// ErrMissingResult reports a success response without a "result"
	// member. A present "result" may hold JSON null.
	ErrMissingResult = errors.New(`message: success response has no "result" member`)
)

// Response is one JSON-RPC response envelope: either a success
// carrying a result, or a failure carrying an error object. Exactly
// one of Result and Err is populated.
type Response struct {
	ID     *ID
	Result json.RawMessage // success: raw result, may be the literal null
	Err    *ErrorObject    // failure: the error object
}

// NewResponse constructs a success response. The id is mandatory.
func NewResponse(id *ID, result any) (*Response, error) {
	if id == nil {
		return nil, ErrMissingID
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("message: marshal result: %w", err)
	}
	return &Response{ID: id, Result: raw}, nil
}

// NewErrorResponse constructs an error response. The id may be nil
// when the request it answers could not be parsed.
func NewErrorResponse(id *ID, errObj *ErrorObject) *Response {
	return &Response{ID: id, Err: errObj}
}

// IsError reports whether the response holds the error variant.
func (r *Response) IsError() bool { return r.Err != nil }

// UnmarshalResult decodes the success result into v.
func (r *Response) UnmarshalResult(v any) error {
	if r.Err != nil {
		return r.Err
	}
	return json.Unmarshal(r.Result, v)
}

func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Err != nil {
		return json.Marshal(struct {
			JSONRPC string       `json:"jsonrpc"`
			ID      *ID          `json:"id,omitempty"`
			Error   *ErrorObject `json:"error"`
		}{Version, r.ID, r.Err})
	}
	if r.ID == nil {
		return nil, ErrMissingID
	}
	return json.Marshal(struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      *ID             `json:"id"`
		Result  json.RawMessage `json:"result"`
	}{Version, r.ID, r.Result})
}

func (r *Response) UnmarshalJSON(data []byte) error {
	var w struct {
		JSONRPC json.RawMessage `json:"jsonrpc"`
		ID      json.RawMessage `json:"id"`
		Result  json.RawMessage `json:"result"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("message: response is not a JSON object: %w", err)
	}
	if err := checkVersion(w.JSONRPC); err != nil {
		return err
	}
	id, err := parseID(w.ID)
	if err != nil {
		return err
	}
	// The presence of "error" selects the variant.
	if w.Error != nil {
		var errObj ErrorObject
		if err := json.Unmarshal(w.Error, &errObj); err != nil {
			return err
		}
		*r = Response{ID: id, Err: &errObj}
		return nil
	}
	if id == nil {
		return ErrMissingID
	}
	if w.Result == nil {
		return ErrMissingResult
	}
	*r = Response{ID: id, Result: w.Result}
	return nil
}
