package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyBatch reports a batch with zero envelopes. Batches are
// ordered and non-empty; a single envelope is the one-line degenerate
// case.
var ErrEmptyBatch = errors.New("message: empty batch")

// Batch wire convention: each envelope is serialized to compact JSON
// and the members are joined with single '\n' separators, no trailing
// newline. The joined text travels as one frame payload. This is a
// deliberate departure from the JSON-RPC array-batch convention in
// favor of line-splittable payloads; it is the authoritative wire
// contract for this stack and does not interoperate with array-batch
// peers.

// EncodeRequests serializes a request batch into one frame payload.
func EncodeRequests(reqs []*Request) ([]byte, error) {
	if len(reqs) == 0 {
		return nil, ErrEmptyBatch
	}
	var buf bytes.Buffer
	for i, r := range reqs {
		if i > 0 {
			buf.WriteByte('\n')
		}
		line, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("message: encode request %d: %w", i, err)
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// DecodeRequests parses a frame payload into its request envelopes in
// wire order. A malformed line aborts decoding of the entire frame.
func DecodeRequests(payload []byte) ([]*Request, error) {
	lines, err := splitLines(payload)
	if err != nil {
		return nil, err
	}
	reqs := make([]*Request, len(lines))
	for i, line := range lines {
		var r Request
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("message: decode request %d: %w", i, err)
		}
		reqs[i] = &r
	}
	return reqs, nil
}

// EncodeResponses serializes a response batch into one frame payload.
func EncodeResponses(resps []*Response) ([]byte, error) {
	if len(resps) == 0 {
		return nil, ErrEmptyBatch
	}
	var buf bytes.Buffer
	for i, r := range resps {
		if i > 0 {
			buf.WriteByte('\n')
		}
		line, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("message: encode response %d: %w", i, err)
		}
		buf.Write(line)
	}
	return buf.Bytes(), nil
}

// DecodeResponses parses a frame payload into its response envelopes
// in wire order. A malformed line aborts decoding of the entire frame.
func DecodeResponses(payload []byte) ([]*Response, error) {
	lines, err := splitLines(payload)
	if err != nil {
		return nil, err
	}
	resps := make([]*Response, len(lines))
	for i, line := range lines {
		var r Response
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("message: decode response %d: %w", i, err)
		}
		resps[i] = &r
	}
	return resps, nil
}

// splitLines cuts a frame payload on newline boundaries. Empty
// payloads and blank lines (including a trailing separator) are
// invalid.
func splitLines(payload []byte) ([][]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyBatch
	}
	lines := bytes.Split(payload, []byte{'\n'})
	for i, line := range lines {
		if len(line) == 0 {
			return nil, fmt.Errorf("message: blank line %d in batch payload", i)
		}
	}
	return lines, nil
}
