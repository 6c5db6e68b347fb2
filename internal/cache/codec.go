package cache

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tordrt/dbtranscode/internal/schema"
)

// ErrEmptyCacheFile is returned when decoding zero bytes.
var ErrEmptyCacheFile = errors.New("empty cache file")

// Codec converts snapshots to and from the bytes of a cache file.
type Codec interface {
	// Extension is the file name suffix, including the leading dot.
	Extension() string
	Encode(s *schema.Snapshot) ([]byte, error)
	Decode(data []byte) (*schema.Snapshot, error)
}

// XMLCodec writes human-readable ".meta.xml" files.
type XMLCodec struct{}

// Extension implements Codec.
func (XMLCodec) Extension() string { return ".meta.xml" }

// Encode implements Codec.
func (XMLCodec) Encode(s *schema.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(s); err != nil {
		return nil, fmt.Errorf("failed to encode XML: %w", err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (XMLCodec) Decode(data []byte) (*schema.Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrEmptyCacheFile
	}
	var s schema.Snapshot
	if err := xml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode XML: %w", err)
	}
	return &s, nil
}

// MsgpackCodec writes compact ".meta.mpz" files: MessagePack compressed with zstd.
type MsgpackCodec struct{}

// Extension implements Codec.
func (MsgpackCodec) Extension() string { return ".meta.mpz" }

// Encode implements Codec.
func (MsgpackCodec) Encode(s *schema.Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode MessagePack: %w", err)
	}
	return compress(data)
}

// Decode implements Codec.
func (MsgpackCodec) Decode(data []byte) (*schema.Snapshot, error) {
	if len(data) == 0 {
		return nil, ErrEmptyCacheFile
	}
	raw, err := decompress(data)
	if err != nil {
		return nil, err
	}
	var s schema.Snapshot
	if err := msgpack.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode MessagePack: %w", err)
	}
	return &s, nil
}

// CodecByName resolves "xml" or "msgpack".
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "xml":
		return XMLCodec{}, nil
	case "msgpack", "mpz":
		return MsgpackCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache format: %s (supported: xml, msgpack)", name)
	}
}
