package narration

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	silenceSampleRate = 16000
	silenceBitDepth   = 16
)

// writeSilentWAV writes a mono 16-bit PCM WAV of the given length.
func writeSilentWAV(path string, seconds float64) error {
	if seconds <= 0 || math.IsNaN(seconds) {
		return fmt.Errorf("silent track needs a positive length, got %v", seconds)
	}
	samples := uint32(math.Ceil(seconds * silenceSampleRate))
	dataSize := samples * silenceBitDepth / 8

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := writeWAVHeader(w, dataSize); err != nil {
		f.Close()
		return err
	}
	if _, err := io.CopyN(w, zeroReader{}, int64(dataSize)); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func writeWAVHeader(w io.Writer, dataSize uint32) error {
	const channels = 1
	byteRate := uint32(silenceSampleRate * channels * silenceBitDepth / 8)
	blockAlign := uint16(channels * silenceBitDepth / 8)
	fields := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		36 + dataSize,
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(1), // PCM
		uint16(channels),
		uint32(silenceSampleRate),
		byteRate,
		blockAlign,
		uint16(silenceBitDepth),
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, field := range fields {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}
