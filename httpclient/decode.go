package httpclient

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// decodeBody returns the JSON value held by raw, the raw text when it is not JSON,
// or nil when there is nothing to decode. Numbers stay json.Number so large
// integer IDs keep their digits.
func decodeBody(raw []byte) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return string(raw)
	}
	return v
}

// encodeBody turns a request body into bytes. A nil body yields nil.
func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	case json.RawMessage:
		return b, nil
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, NewValidationError("request body is not JSON encodable: "+err.Error(), "body")
	}
	return encoded, nil
}
