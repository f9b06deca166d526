package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// PCMFormat is the tag for uncompressed integer samples in a fmt chunk.
const PCMFormat = 1

// Format describes a RIFF/WAVE file.
type Format struct {
	AudioFormat   int
	Channels      int
	SampleRate    int
	BitsPerSample int
	DataBytes     int64
	DataOffset    int64
}

// Duration is the playing time implied by the data chunk.
func (f Format) Duration() time.Duration {
	bytesPerSecond := int64(f.SampleRate) * int64(f.Channels) * int64(f.BitsPerSample) / 8
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(f.DataBytes * int64(time.Second) / bytesPerSecond)
}

// IsPCM16 reports whether samples are 16-bit integer PCM.
func (f Format) IsPCM16() bool {
	return f.AudioFormat == PCMFormat && f.BitsPerSample == 16
}

// Inspect reads the RIFF header of a WAV file up to the start of its data chunk.
func Inspect(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return Format{}, err
	}
	defer file.Close()
	return ReadFormat(file)
}

// ReadFormat parses a WAV header from r.
func ReadFormat(r io.Reader) (Format, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return Format{}, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return Format{}, errors.New("not a RIFF/WAVE file")
	}

	var (
		format  Format
		haveFmt bool
		offset  int64 = 12
	)
	for {
		var header [8]byte
		if _, err := io.ReadFull(r, header[:]); err != nil {
			return Format{}, fmt.Errorf("read chunk header: %w", err)
		}
		offset += 8
		id := string(header[0:4])
		size := int64(binary.LittleEndian.Uint32(header[4:8]))

		switch id {
		case "fmt ":
			if size < 16 {
				return Format{}, fmt.Errorf("fmt chunk too small: %d bytes", size)
			}
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return Format{}, fmt.Errorf("read fmt chunk: %w", err)
			}
			format.AudioFormat = int(binary.LittleEndian.Uint16(body[0:2]))
			format.Channels = int(binary.LittleEndian.Uint16(body[2:4]))
			format.SampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			format.BitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return Format{}, errors.New("data chunk precedes fmt chunk")
			}
			format.DataBytes = size
			format.DataOffset = offset
			return format, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size); err != nil {
				return Format{}, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
		offset += size
		if size%2 == 1 {
			if _, err := io.CopyN(io.Discard, r, 1); err != nil {
				return Format{}, fmt.Errorf("skip pad byte: %w", err)
			}
			offset++
		}
	}
}

// WriteHeader writes a canonical 44-byte PCM WAV header for dataBytes of audio.
func WriteHeader(w io.Writer, sampleRate, channels, bitsPerSample int, dataBytes uint32) error {
	blockAlign := channels * bitsPerSample / 8
	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataBytes)
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], PCMFormat)
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(sampleRate*blockAlign))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], uint16(bitsPerSample))
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataBytes)
	_, err := w.Write(header)
	return err
}
