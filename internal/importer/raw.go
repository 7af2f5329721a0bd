package importer

import (
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Shared coders; EncodeAll and DecodeAll are safe for concurrent use.
var (
	coderOnce sync.Once
	rawEnc    *zstd.Encoder
	rawDec    *zstd.Decoder
	coderErr  error
)

func coders() (*zstd.Encoder, *zstd.Decoder, error) {
	coderOnce.Do(func() {
		if rawEnc, coderErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression)); coderErr != nil {
			return
		}
		rawDec, coderErr = zstd.NewReader(nil)
	})
	return rawEnc, rawDec, coderErr
}

// writeRaw stores the original file bytes zstd-compressed.
func writeRaw(path string, data []byte) error {
	enc, _, err := coders()
	if err != nil {
		return err
	}
	return os.WriteFile(path, enc.EncodeAll(data, nil), 0o644)
}

// ReadRaw returns the original bytes of an archived file.
func ReadRaw(path string) ([]byte, error) {
	_, dec, err := coders()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return dec.DecodeAll(b, nil)
}
