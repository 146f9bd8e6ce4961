package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestCodecRoundTrip(t *testing.T) {
	c, err := NewCodec(2, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	data := []byte(strings.Repeat("compressible payload ", 50))
	compressed := c.Compress(data)
	if len(compressed) >= len(data) {
		t.Errorf("compressed %d bytes to %d", len(data), len(compressed))
	}
	if !bytes.HasPrefix(compressed, frameMagic) {
		t.Error("compressed output lacks the zstd frame magic")
	}

	out, err := c.Decompress(compressed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Error("round trip lost data")
	}
}

func TestCodecSmallInputPassesThrough(t *testing.T) {
	c, err := NewCodec(1, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	data := []byte("short")
	if got := c.Compress(data); !bytes.Equal(got, data) {
		t.Errorf("small input rewritten: %q", got)
	}
}

func TestCodecDisabled(t *testing.T) {
	c, err := NewCodec(0, false)
	if err != nil {
		t.Fatal(err)
	}
	data := []byte(strings.Repeat("x", 4096))
	if got := c.Compress(data); !bytes.Equal(got, data) {
		t.Error("disabled codec rewrote its input")
	}

	// A disabled codec still reads framed data written earlier.
	enabled, err := NewCodec(2, true)
	if err != nil {
		t.Fatal(err)
	}
	defer enabled.Close()
	framed := enabled.Compress(data)
	out, err := c.Decompress(framed)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Error("disabled codec failed to decode framed data")
	}
}

func TestCodecRejectsTruncatedFrame(t *testing.T) {
	c, err := NewCodec(2, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	framed := c.Compress([]byte(strings.Repeat("payload ", 64)))
	if _, err := c.Decompress(framed[:6]); err == nil {
		t.Error("truncated frame decoded without error")
	}
}

func TestCodecRawPassThrough(t *testing.T) {
	c, err := NewCodec(2, true)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	raw := []byte("never compressed")
	out, err := c.Decompress(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, raw) {
		t.Error("raw data rewritten")
	}
}
