package types

import (
	"io"

	"github.com/fxamacker/cbor/v2"
)

type (
	CborHandler struct {
		encMode cbor.EncMode
	}

	RawCBOR = cbor.RawMessage

	CborEncoder interface {
		Encode(v any) error
	}

	CborDecoder interface {
		Decode(v any) error
	}
)

// Cbor is the codec used for everything that gets hashed, signed or stored.
var Cbor = newCborHandler()

func newCborHandler() CborHandler {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return CborHandler{encMode: encMode}
}

func (c CborHandler) Marshal(v any) ([]byte, error) {
	return c.encMode.Marshal(v)
}

func (c CborHandler) Unmarshal(data []byte, v any) error {
	return cbor.Unmarshal(data, v)
}

func (c CborHandler) Encode(w io.Writer, v any) error {
	return c.encMode.NewEncoder(w).Encode(v)
}

func (c CborHandler) GetEncoder(w io.Writer) (CborEncoder, error) {
	return c.encMode.NewEncoder(w), nil
}

func (c CborHandler) GetDecoder(r io.Reader) CborDecoder {
	return cbor.NewDecoder(r)
}

func (c CborHandler) Decode(r io.Reader, v any) error {
	return cbor.NewDecoder(r).Decode(v)
}
