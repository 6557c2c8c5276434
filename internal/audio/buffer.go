// Package audio implements the mixdown and loudness pipeline: per-track
// gain and offsets, voice-activity gating, music ducking and BS.1770-style
// integrated loudness normalization. All processing is deterministic pure
// math over mono float64 PCM.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Buffer holds mono PCM samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}

// DBToLinear converts a decibel gain to a linear factor.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20.0)
}

// WriteWAV writes b as a 16-bit mono PCM RIFF file.
func WriteWAV(path string, b *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dataLen := uint32(len(b.Samples) * 2)
	header := make([]byte, 0, 44)
	header = append(header, []byte("RIFF")...)
	header = binary.LittleEndian.AppendUint32(header, 36+dataLen)
	header = append(header, []byte("WAVE")...)
	header = append(header, []byte("fmt ")...)
	header = binary.LittleEndian.AppendUint32(header, 16)
	header = binary.LittleEndian.AppendUint16(header, 1) // PCM
	header = binary.LittleEndian.AppendUint16(header, 1) // mono
	header = binary.LittleEndian.AppendUint32(header, uint32(b.SampleRate))
	header = binary.LittleEndian.AppendUint32(header, uint32(b.SampleRate*2))
	header = binary.LittleEndian.AppendUint16(header, 2)
	header = binary.LittleEndian.AppendUint16(header, 16)
	header = append(header, []byte("data")...)
	header = binary.LittleEndian.AppendUint32(header, dataLen)
	if _, err := f.Write(header); err != nil {
		return err
	}

	pcm := make([]byte, len(b.Samples)*2)
	for i, s := range b.Samples {
		v := int16(math.Round(clamp(s, -1, 1) * 32767))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	_, err = f.Write(pcm)
	return err
}

// ReadWAV parses a 16-bit PCM RIFF file. Stereo input is downmixed to mono
// by channel average.
func ReadWAV(path string) (*Buffer, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 12 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%s: not a RIFF/WAVE file", path)
	}

	var (
		channels   int
		sampleRate int
		bits       int
		data       []byte
	)
	off := 12
	for off+8 <= len(raw) {
		chunkID := string(raw[off : off+4])
		chunkLen := int(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		body := raw[off+8:]
		if chunkLen > len(body) {
			chunkLen = len(body)
		}
		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, fmt.Errorf("%s: short fmt chunk", path)
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			if format != 1 {
				return nil, fmt.Errorf("%s: unsupported WAV format %d", path, format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bits = int(binary.LittleEndian.Uint16(body[14:16]))
		case "data":
			data = body[:chunkLen]
		}
		off += 8 + chunkLen
		if chunkLen%2 == 1 {
			off++
		}
	}
	if sampleRate == 0 || data == nil {
		return nil, fmt.Errorf("%s: missing fmt or data chunk", path)
	}
	if bits != 16 {
		return nil, fmt.Errorf("%s: unsupported bit depth %d", path, bits)
	}
	if channels < 1 {
		return nil, fmt.Errorf("%s: invalid channel count %d", path, channels)
	}

	frames := len(data) / (2 * channels)
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var acc float64
		for c := 0; c < channels; c++ {
			v := int16(binary.LittleEndian.Uint16(data[(i*channels+c)*2:]))
			acc += float64(v) / 32768.0
		}
		samples[i] = acc / float64(channels)
	}
	return &Buffer{SampleRate: sampleRate, Samples: samples}, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
