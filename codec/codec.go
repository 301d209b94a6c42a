// Package codec serializes engine snapshots into a self-describing,
// checksummed envelope, optionally compressed.
//
// Envelope layout:
//
//	magic "FSM1" | format (1 byte) | compression (1 byte) | xxh3 of payload (8 bytes, big endian) | payload
//
// The checksum covers the serialized snapshot before compression, so
// corruption is caught no matter which compressor produced the bytes.
package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/amp-labs/amp-fsm/config"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/zeebo/xxh3"
)

const (
	magic      = "FSM1"
	headerSize = len(magic) + 1 + 1 + 8
)

// Codec errors.
var (
	ErrUnknownFormat      = errors.New("unknown snapshot format")
	ErrUnknownCompression = errors.New("unknown snapshot compression")
	ErrInvalidEnvelope    = errors.New("invalid snapshot envelope")
	ErrChecksumMismatch   = errors.New("snapshot checksum mismatch")
)

// Codec encodes snapshots with a fixed format and compression. Decode
// accepts any envelope regardless of how the codec itself is configured.
type Codec struct {
	Format      Format
	Compression Compression
}

// Default is JSON without compression.
var Default = Codec{Format: FormatJSON, Compression: CompressionNone} //nolint:gochecknoglobals

// Parse builds a codec from format and compression names. Empty names select
// json and none.
func Parse(format, compression string) (Codec, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return Codec{}, err
	}

	c, err := ParseCompression(compression)
	if err != nil {
		return Codec{}, err
	}

	return Codec{Format: f, Compression: c}, nil
}

// FromConfig builds a codec from the codec section of the configuration.
func FromConfig(cfg config.Codec) (Codec, error) {
	return Parse(cfg.Format, cfg.Compression)
}

// String returns "format+compression".
func (c Codec) String() string {
	return c.Format.String() + "+" + c.Compression.String()
}

// Encode serializes snap into an envelope.
func (c Codec) Encode(snap statemachine.Snapshot) ([]byte, error) {
	payload, err := c.Format.marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot as %s: %w", c.Format, err)
	}

	compressed, err := c.Compression.compress(payload)
	if err != nil {
		return nil, fmt.Errorf("compressing snapshot with %s: %w", c.Compression, err)
	}

	out := make([]byte, headerSize, headerSize+len(compressed))
	copy(out, magic)
	out[4] = byte(c.Format)
	out[5] = byte(c.Compression)
	binary.BigEndian.PutUint64(out[6:headerSize], xxh3.Hash(payload))

	return append(out, compressed...), nil
}

// Decode reads an envelope produced by any codec.
func (c Codec) Decode(data []byte) (statemachine.Snapshot, error) {
	return Decode(data)
}

// Decode reads an envelope, verifying its checksum.
func Decode(data []byte) (statemachine.Snapshot, error) {
	if len(data) < headerSize || !bytes.Equal(data[:len(magic)], []byte(magic)) {
		return statemachine.Snapshot{}, ErrInvalidEnvelope
	}

	format := Format(data[4])
	if !format.valid() {
		return statemachine.Snapshot{}, fmt.Errorf("%w: %d", ErrUnknownFormat, data[4])
	}

	compression := Compression(data[5])
	if !compression.valid() {
		return statemachine.Snapshot{}, fmt.Errorf("%w: %d", ErrUnknownCompression, data[5])
	}

	want := binary.BigEndian.Uint64(data[6:headerSize])

	payload, err := compression.decompress(data[headerSize:])
	if err != nil {
		return statemachine.Snapshot{}, fmt.Errorf("decompressing %s snapshot: %w", compression, err)
	}

	if got := xxh3.Hash(payload); got != want {
		return statemachine.Snapshot{}, fmt.Errorf("%w: want %016x, got %016x", ErrChecksumMismatch, want, got)
	}

	snap, err := format.unmarshal(payload)
	if err != nil {
		return statemachine.Snapshot{}, fmt.Errorf("decoding %s snapshot: %w", format, err)
	}

	return snap, nil
}
