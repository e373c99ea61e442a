package codec

import (
	"encoding/json"
	"fmt"

	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// New returns the codec registered under name: "msgpack" (default), "cbor" or "json".
func New(name string) (ports.Codec, error) {
	switch name {
	case "", "msgpack":
		return Msgpack{}, nil
	case "cbor":
		return NewCBOR()
	case "json":
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// Msgpack serializes with vmihailenco/msgpack/v5. The zero value is ready to use.
type Msgpack struct{}

func (Msgpack) Name() string                   { return "msgpack" }
func (Msgpack) Encode(v any) ([]byte, error)   { return msgpack.Marshal(v) }
func (Msgpack) Decode(b []byte, out any) error { return msgpack.Unmarshal(b, out) }

// CBOR serializes with fxamacker/cbor. Construct with NewCBOR.
type CBOR struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBOR uses preferred unsorted encoding with RFC3339Nano timestamps.
func NewCBOR() (CBOR, error) {
	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	em, err := eo.EncMode()
	if err != nil {
		return CBOR{}, err
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBOR{}, err
	}
	return CBOR{enc: em, dec: dm}, nil
}

func (CBOR) Name() string                     { return "cbor" }
func (c CBOR) Encode(v any) ([]byte, error)   { return c.enc.Marshal(v) }
func (c CBOR) Decode(b []byte, out any) error { return c.dec.Unmarshal(b, out) }

type JSON struct{}

func (JSON) Name() string                   { return "json" }
func (JSON) Encode(v any) ([]byte, error)   { return json.Marshal(v) }
func (JSON) Decode(b []byte, out any) error { return json.Unmarshal(b, out) }

// Limit rejects payloads larger than MaxDecode bytes before decoding.
// A shared store may hold entries written by other processes.
type Limit struct {
	Inner     ports.Codec
	MaxDecode int
}

func (c Limit) Name() string                 { return c.Inner.Name() }
func (c Limit) Encode(v any) ([]byte, error) { return c.Inner.Encode(v) }
func (c Limit) Decode(b []byte, out any) error {
	if c.MaxDecode > 0 && len(b) > c.MaxDecode {
		return fmt.Errorf("payload too large: %d > %d", len(b), c.MaxDecode)
	}
	return c.Inner.Decode(b, out)
}
