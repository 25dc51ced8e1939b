package audio

import (
	"encoding/binary"
	"math"
	"sync"
)

// SampleRate is the PCM16LE mono rate the browser streams and the pipeline
// consumes.
const SampleRate = 16000

// ClipBuffer accumulates streamed PCM chunks between pipeline cycles. Drain
// hands the buffered audio to a cycle and resets for the next one.
type ClipBuffer struct {
	mu       sync.Mutex
	buf      []byte
	maxBytes int
}

// NewClipBuffer bounds the buffer at maxBytes; once full, further chunks are
// dropped until the next drain.
func NewClipBuffer(maxBytes int) *ClipBuffer {
	if maxBytes <= 0 {
		maxBytes = SampleRate * 2 * 30 // 30s of PCM16 mono
	}
	return &ClipBuffer{maxBytes: maxBytes}
}

// Append adds a chunk and reports whether it was kept.
func (b *ClipBuffer) Append(chunk []byte) bool {
	if len(chunk) == 0 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buf)+len(chunk) > b.maxBytes {
		return false
	}
	b.buf = append(b.buf, chunk...)
	return true
}

// Drain returns the buffered audio and resets the buffer.
func (b *ClipBuffer) Drain() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.buf
	b.buf = nil
	return out
}

// Len reports the currently buffered byte count.
func (b *ClipBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

// RMS computes the root mean square of a PCM16LE mono buffer.
func RMS(pcm []byte) float64 {
	if len(pcm) < 2 {
		return 0
	}
	var sumSquares float64
	count := 0
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(binary.LittleEndian.Uint16(pcm[i : i+2]))
		sumSquares += float64(v) * float64(v)
		count++
	}
	if count == 0 {
		return 0
	}
	return math.Sqrt(sumSquares / float64(count))
}

// Level normalizes RMS into 0..1 for waveform rendering.
func Level(pcm []byte) float64 {
	l := RMS(pcm) / 32768.0
	if l > 1 {
		l = 1
	}
	return l
}

// WAVFromPCM16 wraps raw PCM16LE mono samples in a RIFF/WAVE header so the
// clip can be posted to transcription endpoints that expect a container.
func WAVFromPCM16(pcm []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	out := make([]byte, 44+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM format
	binary.LittleEndian.PutUint16(out[22:24], numChannels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[44:], pcm)
	return out
}
