// package decode provides the codec for the single field
// JSON envelope exchanged by clients and the echo handler
package decode

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"unicode/utf8"
)

const (
	// JSONContentType is the media type both request and response envelopes are sent with
	JSONContentType = "application/json"
	// MsgField is the only field an envelope is allowed to carry
	MsgField = "msg"
)

// Errors that might result from decoding an envelope
var (
	ErrInvalidUTF8     = errors.New("payload is not valid utf-8")
	ErrInvalidEnvelope = errors.New("payload is not a valid envelope")
)

// Envelope is the `{"msg": string}` document exchanged in both directions
type Envelope struct {
	Msg string `json:"msg"`
}

// DecodeEnvelope strictly decodes raw bytes into an envelope.
// The bytes must be valid utf-8 and hold exactly one JSON object
// whose only key is `msg`, given once, with a string value. Anything
// else (missing, repeated or extra keys, null or non string msg,
// trailing data) is rejected with ErrInvalidEnvelope.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	if !utf8.Valid(raw) {
		return nil, ErrInvalidUTF8
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))

	token, err := decoder.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvelope, err)
	}
	if delim, ok := token.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidEnvelope)
	}

	var envelope *Envelope
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEnvelope, err)
		}

		key, _ := token.(string)
		if key != MsgField {
			return nil, fmt.Errorf("%w: unexpected field %q", ErrInvalidEnvelope, key)
		}
		if envelope != nil {
			return nil, fmt.Errorf("%w: duplicate %s field", ErrInvalidEnvelope, MsgField)
		}

		var rawMsg json.RawMessage
		if err := decoder.Decode(&rawMsg); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInvalidEnvelope, err)
		}

		if bytes.Equal(bytes.TrimSpace(rawMsg), []byte("null")) {
			return nil, fmt.Errorf("%w: %s must be a string, got null", ErrInvalidEnvelope, MsgField)
		}

		envelope = &Envelope{}
		if err := json.Unmarshal(rawMsg, &envelope.Msg); err != nil {
			return nil, fmt.Errorf("%w: %s must be a string: %s", ErrInvalidEnvelope, MsgField, err)
		}
	}

	// closing brace of the object
	if _, err := decoder.Token(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvelope, err)
	}

	if envelope == nil {
		return nil, fmt.Errorf("%w: missing %s field", ErrInvalidEnvelope, MsgField)
	}

	// only whitespace may follow the object
	if _, err := decoder.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected data after envelope", ErrInvalidEnvelope)
	}

	return envelope, nil
}

// EncodeEnvelope serializes the envelope with no extra fields and
// without escaping html characters in msg
func EncodeEnvelope(envelope *Envelope) ([]byte, error) {
	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(envelope); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// IsJSONContentType returns whether the media type of the content type
// header value is exactly application/json, parameters such as charset
// are ignored
func IsJSONContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == JSONContentType
}
