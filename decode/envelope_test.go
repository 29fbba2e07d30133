package decode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kava-labs/envelope-rewrite-service/decode"
)

func TestUnitTestDecodeEnvelopeAcceptsValidEnvelopes(t *testing.T) {
	for _, tc := range []struct {
		name    string
		raw     string
		wantMsg string
	}{
		{name: "simple", raw: `{"msg":"hi"}`, wantMsg: "hi"},
		{name: "empty msg", raw: `{"msg":""}`, wantMsg: ""},
		{name: "surrounding whitespace", raw: " \n{ \"msg\" : \"hi\" }\n ", wantMsg: "hi"},
		{name: "escaped characters", raw: `{"msg":"a \"quoted\" é"}`, wantMsg: `a "quoted" é`},
		{name: "multibyte utf-8", raw: `{"msg":"héllo 世界"}`, wantMsg: "héllo 世界"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			envelope, err := decode.DecodeEnvelope([]byte(tc.raw))

			require.NoError(t, err)
			assert.Equal(t, tc.wantMsg, envelope.Msg)
		})
	}
}

func TestUnitTestDecodeEnvelopeRejectsInvalidPayloads(t *testing.T) {
	for _, tc := range []struct {
		name    string
		raw     []byte
		wantErr error
	}{
		{name: "invalid utf-8", raw: []byte{'{', '"', 'm', 's', 'g', '"', ':', '"', 0xff, 0xfe, '"', '}'}, wantErr: decode.ErrInvalidUTF8},
		{name: "not json", raw: []byte("not json"), wantErr: decode.ErrInvalidEnvelope},
		{name: "empty body", raw: []byte(""), wantErr: decode.ErrInvalidEnvelope},
		{name: "json null", raw: []byte("null"), wantErr: decode.ErrInvalidEnvelope},
		{name: "json array", raw: []byte(`[{"msg":"hi"}]`), wantErr: decode.ErrInvalidEnvelope},
		{name: "json string", raw: []byte(`"hi"`), wantErr: decode.ErrInvalidEnvelope},
		{name: "missing msg", raw: []byte(`{}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "extra field", raw: []byte(`{"msg":"hi","other":1}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "extra field first", raw: []byte(`{"other":1,"msg":"hi"}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "duplicate msg", raw: []byte(`{"msg":"a","msg":"b"}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "duplicate msg of other type", raw: []byte(`{"msg":"a","msg":1}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "missing colon", raw: []byte(`{"msg" "hi"}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "wrong case field", raw: []byte(`{"MSG":"hi"}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "number msg", raw: []byte(`{"msg":1}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "null msg", raw: []byte(`{"msg":null}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "object msg", raw: []byte(`{"msg":{"nested":"hi"}}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "trailing document", raw: []byte(`{"msg":"hi"}{"msg":"again"}`), wantErr: decode.ErrInvalidEnvelope},
		{name: "trailing garbage", raw: []byte(`{"msg":"hi"} trailing`), wantErr: decode.ErrInvalidEnvelope},
		{name: "truncated", raw: []byte(`{"msg":"hi"`), wantErr: decode.ErrInvalidEnvelope},
	} {
		t.Run(tc.name, func(t *testing.T) {
			envelope, err := decode.DecodeEnvelope(tc.raw)

			assert.Nil(t, envelope)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestUnitTestEncodeEnvelopeWritesOnlyMsgField(t *testing.T) {
	encoded, err := decode.EncodeEnvelope(&decode.Envelope{Msg: "hi. I modified the request."})

	require.NoError(t, err)
	assert.Equal(t, `{"msg":"hi. I modified the request."}`, string(encoded))
}

func TestUnitTestEncodeEnvelopeDoesNotEscapeHTML(t *testing.T) {
	encoded, err := decode.EncodeEnvelope(&decode.Envelope{Msg: "<b>&</b>"})

	require.NoError(t, err)
	assert.Equal(t, `{"msg":"<b>&</b>"}`, string(encoded))
}

func TestUnitTestEncodedEnvelopeDecodesStrictly(t *testing.T) {
	original := &decode.Envelope{Msg: "line\nbreak \"quotes\" \\ tab\t"}

	encoded, err := decode.EncodeEnvelope(original)
	require.NoError(t, err)

	decoded, err := decode.DecodeEnvelope(encoded)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestUnitTestIsJSONContentType(t *testing.T) {
	for _, tc := range []struct {
		contentType string
		want        bool
	}{
		{contentType: "application/json", want: true},
		{contentType: "application/json; charset=utf-8", want: true},
		{contentType: "Application/JSON", want: true},
		{contentType: "text/plain", want: false},
		{contentType: "application/json-patch+json", want: false},
		{contentType: "application/vnd.api+json", want: false},
		{contentType: "", want: false},
		{contentType: ";;", want: false},
	} {
		t.Run(tc.contentType, func(t *testing.T) {
			assert.Equal(t, tc.want, decode.IsJSONContentType(tc.contentType))
		})
	}
}
