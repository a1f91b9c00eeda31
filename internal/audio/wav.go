package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	FormatWAV     = "wav"
	FormatMP3     = "mp3"
	FormatOGG     = "ogg"
	FormatWebM    = "webm"
	FormatFLAC    = "flac"
	FormatUnknown = "unknown"
)

// Info describes an audio payload as far as its container reveals.
type Info struct {
	Format     string        `json:"format"`
	SampleRate int           `json:"sample_rate,omitempty"`
	Channels   int           `json:"channels,omitempty"`
	BitDepth   int           `json:"bit_depth,omitempty"`
	Duration   time.Duration `json:"duration,omitempty"`
}

// Sniff guesses the container from magic bytes.
func Sniff(b []byte) string {
	switch {
	case len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WAVE":
		return FormatWAV
	case len(b) >= 4 && string(b[0:4]) == "OggS":
		return FormatOGG
	case len(b) >= 4 && string(b[0:4]) == "fLaC":
		return FormatFLAC
	case len(b) >= 4 && b[0] == 0x1A && b[1] == 0x45 && b[2] == 0xDF && b[3] == 0xA3:
		return FormatWebM
	case len(b) >= 3 && string(b[0:3]) == "ID3":
		return FormatMP3
	case len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return FormatMP3
	default:
		return FormatUnknown
	}
}

// Inspect sniffs the container and, for WAV, reads the header.
func Inspect(b []byte) Info {
	info := Info{Format: Sniff(b)}
	if info.Format != FormatWAV {
		return info
	}
	dec := wav.NewDecoder(bytes.NewReader(b))
	if !dec.IsValidFile() {
		return info
	}
	dec.ReadInfo()
	if f := dec.Format(); f != nil {
		info.SampleRate = f.SampleRate
		info.Channels = f.NumChannels
	}
	info.BitDepth = int(dec.BitDepth)
	// Duration counts only the data chunk; the decoder's own Duration
	// includes header bytes.
	bytesPerSec := info.SampleRate * info.Channels * info.BitDepth / 8
	if bytesPerSec > 0 && dec.FwdToPCM() == nil {
		info.Duration = time.Duration(dec.PCMLen()) * time.Second / time.Duration(bytesPerSec)
	}
	return info
}

// ContentType maps a format name to the MIME type upstream APIs expect.
func ContentType(format string) string {
	switch format {
	case FormatWAV:
		return "audio/wav"
	case FormatMP3:
		return "audio/mpeg"
	case FormatOGG:
		return "audio/ogg"
	case FormatWebM:
		return "audio/webm"
	case FormatFLAC:
		return "audio/flac"
	default:
		return "application/octet-stream"
	}
}

// FileExtension is used when a multipart upload needs a filename.
func FileExtension(format string) string {
	if format == FormatUnknown || format == "" {
		return "bin"
	}
	return format
}

// EncodeWAVPCM16LE wraps raw PCM16LE mono audio bytes in a WAV container.
func EncodeWAVPCM16LE(pcm []byte, sampleRate int) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, errors.New("pcm16 payload has odd length")
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
	}

	out := &memWriteSeeker{}
	enc := wav.NewEncoder(out, sampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           samples,
	}
	if err := enc.Write(buf); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalize wav: %w", err)
	}
	return out.buf, nil
}

// memWriteSeeker lets the WAV encoder patch its header in memory.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var base int
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = m.pos
	case io.SeekEnd:
		base = len(m.buf)
	default:
		return 0, errors.New("invalid whence")
	}
	next := base + int(offset)
	if next < 0 {
		return 0, errors.New("negative position")
	}
	m.pos = next
	return int64(next), nil
}
