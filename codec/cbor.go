package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode encodes with Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. The same logical asset always produces identical bytes, which
// keeps compiled blobs stable across rebuilds and lets content hashes
// detect real changes.
var encMode cbor.EncMode

// decMode accepts standard CBOR. Unknown fields are ignored so old
// engines can read blobs written by newer importers.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Asset metadata only ever uses string map keys. Decoding into
		// an any-typed target must produce map[string]any, not the CBOR
		// default map[interface{}]interface{}, so tooling can hand the
		// result to encoding/json. Struct field decoding is unaffected.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v to CBOR using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// RawMessage is a raw encoded CBOR value, for delaying decode or
// embedding pre-encoded output.
type RawMessage = cbor.RawMessage

// NewEncoder returns a CBOR encoder writing to w with the deterministic
// configuration.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a CBOR decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// Diagnose returns the CBOR diagnostic notation (RFC 8949 §8) for data.
// Inspection tooling uses it to print compiled payloads readably.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}
