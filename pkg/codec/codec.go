// Package codec provides message serializers for byte transports.
package codec

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/conduit/pkg/channel"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

// Names accepted by ByName.
const (
	NameJSON        = "json"
	NameMsgPack     = "msgpack"
	NameJSONZstd    = "json+zstd"
	NameMsgPackZstd = "msgpack+zstd"
)

// JSON encodes messages with encoding/json.
type JSON struct{}

func (JSON) Name() string { return NameJSON }

func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgPack encodes messages with MessagePack.
type MsgPack struct{}

func (MsgPack) Name() string { return NameMsgPack }

func (MsgPack) Marshal(v any) ([]byte, error) { return msgpack.Marshal(v) }

func (MsgPack) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// Zstd compresses the output of an inner codec.
// The encoder and decoder are shared and safe for concurrent use.
type Zstd struct {
	inner   channel.Codec
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstd wraps inner with zstd compression.
func NewZstd(inner channel.Codec) (*Zstd, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &Zstd{inner: inner, encoder: encoder, decoder: decoder}, nil
}

func (z *Zstd) Name() string { return z.inner.Name() + "+zstd" }

func (z *Zstd) Marshal(v any) ([]byte, error) {
	data, err := z.inner.Marshal(v)
	if err != nil {
		return nil, err
	}
	return z.encoder.EncodeAll(data, nil), nil
}

func (z *Zstd) Unmarshal(data []byte, v any) error {
	raw, err := z.decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	return z.inner.Unmarshal(raw, v)
}

// Close releases the compressor resources.
func (z *Zstd) Close() {
	_ = z.encoder.Close()
	z.decoder.Close()
}

// ByName resolves a codec from its configuration name.
func ByName(name string) (channel.Codec, error) {
	base, compressed := strings.CutSuffix(strings.ToLower(strings.TrimSpace(name)), "+zstd")

	var c channel.Codec
	switch base {
	case "", NameJSON:
		c = JSON{}
	case NameMsgPack:
		c = MsgPack{}
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
	if !compressed {
		return c, nil
	}
	return NewZstd(c)
}
