package recording

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("audio capture device unavailable")
)

const (
	defaultFFTSize = 256
	minFFTSize     = 2
	minDecibels    = -100.0
	maxDecibels    = -30.0
)

// Stream is an open capture stream with a frequency analyser attached.
type Stream interface {
	// FrequencyBinCount is half of the analysis window size.
	FrequencyBinCount() int
	// ByteFrequencyData fills dst with the magnitude of each bin scaled to 0..255.
	ByteFrequencyData(dst []byte)
	Close() error
}

// AudioSource acquires a capture stream.
type AudioSource interface {
	Open(ctx context.Context) (Stream, error)
}

// PCMFileSource captures 16-bit little-endian mono PCM from a file or a named pipe.
type PCMFileSource struct {
	Path    string
	FFTSize int
}

func (s PCMFileSource) Open(_ context.Context) (Stream, error) {
	fftSize := s.FFTSize
	if fftSize == 0 {
		fftSize = defaultFFTSize
	}
	if fftSize < minFFTSize {
		return nil, fmt.Errorf("FFT size must be at least %d, got %d", minFFTSize, fftSize)
	}

	file, err := os.Open(s.Path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrPermission):
			return nil, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	}

	return newPCMStream(file, fftSize), nil
}

// pcmStream reads frames on its own goroutine. ByteFrequencyData never blocks: it consumes
// at most one pending frame and reports silence when none is ready.
type pcmStream struct {
	closer    io.Closer
	frames    chan []int16
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error

	mu     sync.Mutex
	window []float64
}

func newPCMStream(r io.ReadCloser, fftSize int) *pcmStream {
	s := &pcmStream{
		closer: r,
		frames: make(chan []int16, 1),
		done:   make(chan struct{}),
		window: make([]float64, fftSize),
	}
	go s.read(r, fftSize)
	return s
}

func (s *pcmStream) read(r io.Reader, fftSize int) {
	defer close(s.frames)
	for {
		frame := make([]int16, fftSize)
		// A short read at the end of the input is dropped.
		if err := binary.Read(r, binary.LittleEndian, frame); err != nil {
			return
		}
		select {
		case s.frames <- frame:
		case <-s.done:
			return
		}
	}
}

func (s *pcmStream) FrequencyBinCount() int {
	return len(s.window) / 2
}

func (s *pcmStream) ByteFrequencyData(dst []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var frame []int16
	select {
	case frame = <-s.frames:
	default:
	}
	for i := range s.window {
		s.window[i] = 0
		if i < len(frame) {
			s.window[i] = float64(frame[i]) / math.MaxInt16
		}
	}
	byteSpectrum(s.window, dst)
}

// Close releases the input, which also unblocks a pending read.
func (s *pcmStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.closer.Close()
	})
	return s.closeErr
}

// byteSpectrum computes the magnitude spectrum of a Hann-windowed frame and maps
// it from [minDecibels, maxDecibels] to 0..255.
func byteSpectrum(frame []float64, dst []byte) {
	n := len(frame)
	bins := min(n/2, len(dst))
	if n < minFFTSize {
		clear(dst)
		return
	}
	for k := 0; k < bins; k++ {
		var re, im float64
		for t, value := range frame {
			hann := 0.5 * (1 - math.Cos(2*math.Pi*float64(t)/float64(n-1)))
			angle := 2 * math.Pi * float64(k) * float64(t) / float64(n)
			re += value * hann * math.Cos(angle)
			im -= value * hann * math.Sin(angle)
		}
		magnitude := math.Hypot(re, im) / float64(n)

		db := minDecibels
		if magnitude > 0 {
			db = 20 * math.Log10(magnitude)
		}
		scaled := 255 * (db - minDecibels) / (maxDecibels - minDecibels)
		dst[k] = byte(math.Max(0, math.Min(255, scaled)))
	}
}

// SilentSource captures nothing. It is used when no capture device is configured.
type SilentSource struct{}

func (SilentSource) Open(_ context.Context) (Stream, error) {
	return silentStream{}, nil
}

type silentStream struct{}

func (silentStream) FrequencyBinCount() int {
	return defaultFFTSize / 2
}

func (silentStream) ByteFrequencyData(dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
}

func (silentStream) Close() error {
	return nil
}

// meanLevel is the average of the byte frequency data.
func meanLevel(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum int
	for _, value := range data {
		sum += int(value)
	}
	return float64(sum) / float64(len(data))
}
