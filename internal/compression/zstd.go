// Package compression provides transparent zstd framing for stored
// tree objects. Compressed data is recognized by the zstd frame magic,
// so a store can hold compressed and raw objects side by side.
package compression

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstd frame magic, little-endian 0xFD2FB528.
var frameMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// minSize is the threshold below which compression is not attempted.
const minSize = 128

type Codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	enabled bool
}

func NewCodec(level int, enabled bool) (*Codec, error) {
	if !enabled {
		return &Codec{}, nil
	}

	var encoderLevel zstd.EncoderLevel
	switch level {
	case 1:
		encoderLevel = zstd.SpeedFastest
	case 2:
		encoderLevel = zstd.SpeedDefault
	case 3:
		encoderLevel = zstd.SpeedBetterCompression
	default:
		encoderLevel = zstd.SpeedDefault
	}

	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Codec{encoder: encoder, decoder: decoder, enabled: true}, nil
}

// Compress returns data zstd-framed when that is a win, the input
// unchanged otherwise.
func (c *Codec) Compress(data []byte) []byte {
	if !c.enabled || len(data) < minSize {
		return data
	}
	compressed := c.encoder.EncodeAll(data, make([]byte, 0, len(data)))
	if len(compressed) >= len(data) {
		return data
	}
	return compressed
}

// Decompress reverses Compress. Raw input passes through; framed input
// that fails to decode is an error, never silently returned as-is.
func (c *Codec) Decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, frameMagic) {
		return data, nil
	}
	if c.decoder == nil {
		d, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer d.Close()
		return d.DecodeAll(data, nil)
	}
	out, err := c.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return out, nil
}

func (c *Codec) Close() error {
	if c.encoder != nil {
		c.encoder.Close()
	}
	if c.decoder != nil {
		c.decoder.Close()
	}
	return nil
}
