package recording

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePCM(t *testing.T, samples []int16) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lecture.pcm")
	file, err := os.Create(path)
	require.NoError(t, err)
	defer file.Close()
	require.NoError(t, binary.Write(file, binary.LittleEndian, samples))
	return path
}

func TestPCMFileSource_Open(t *testing.T) {
	t.Run("missing device", func(t *testing.T) {
		_, err := PCMFileSource{Path: filepath.Join(t.TempDir(), "missing")}.Open(context.Background())
		assert.ErrorIs(t, err, ErrDeviceUnavailable)
	})

	t.Run("permission denied", func(t *testing.T) {
		if os.Geteuid() == 0 {
			t.Skip("root ignores file permissions")
		}
		path := writePCM(t, []int16{0})
		require.NoError(t, os.Chmod(path, 0o000))

		_, err := PCMFileSource{Path: path}.Open(context.Background())
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestPCMStream_ByteFrequencyData(t *testing.T) {
	const fftSize = 64
	samples := make([]int16, fftSize)
	for i := range samples {
		// A quiet tone in bin 8
		samples[i] = int16(0.01 * math.MaxInt16 * math.Sin(2*math.Pi*8*float64(i)/fftSize))
	}
	path := writePCM(t, samples)

	stream, err := PCMFileSource{Path: path, FFTSize: fftSize}.Open(context.Background())
	require.NoError(t, err)
	defer stream.Close()

	require.Equal(t, fftSize/2, stream.FrequencyBinCount())
	data := make([]byte, stream.FrequencyBinCount())

	// Frames are read in the background; silence is reported until the first one is ready.
	require.Eventually(t, func() bool {
		stream.ByteFrequencyData(data)
		return meanLevel(data) > 0
	}, time.Second, time.Millisecond)
	peak := 0
	for i, value := range data {
		if value > data[peak] {
			peak = i
		}
	}
	assert.Equal(t, 8, peak)

	// The input is exhausted, so the next frame is silent.
	stream.ByteFrequencyData(data)
	assert.Equal(t, 0.0, meanLevel(data))
}

func TestPCMFileSource_FFTSize(t *testing.T) {
	path := writePCM(t, []int16{0, 0})

	_, err := PCMFileSource{Path: path, FFTSize: 1}.Open(context.Background())
	assert.ErrorContains(t, err, "FFT size must be at least 2")

	stream, err := PCMFileSource{Path: path}.Open(context.Background())
	require.NoError(t, err)
	defer stream.Close()
	assert.Equal(t, defaultFFTSize/2, stream.FrequencyBinCount())
}

func TestByteSpectrum_TooShortFrame(t *testing.T) {
	dst := []byte{7, 7}
	byteSpectrum([]float64{1}, dst)
	assert.Equal(t, []byte{0, 0}, dst)
}

func TestPCMStream_QuietPipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()

	stream := newPCMStream(r, 64)
	data := make([]byte, stream.FrequencyBinCount())

	done := make(chan struct{})
	go func() {
		defer close(done)
		stream.ByteFrequencyData(data)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ByteFrequencyData blocked on a pipe without data")
	}
	assert.Equal(t, 0.0, meanLevel(data))

	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-stream.frames:
			return !ok
		default:
			return false
		}
	}, time.Second, time.Millisecond)
}

func TestSilentSource(t *testing.T) {
	stream, err := SilentSource{}.Open(context.Background())
	require.NoError(t, err)

	data := []byte{1, 2, 3}
	stream.ByteFrequencyData(data)
	assert.Equal(t, []byte{0, 0, 0}, data)
	assert.Equal(t, 128, stream.FrequencyBinCount())
	assert.NoError(t, stream.Close())
}

func TestMeanLevel(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want float64
	}{
		{name: "empty", data: nil, want: 0},
		{name: "silence", data: []byte{0, 0}, want: 0},
		{name: "average", data: []byte{0, 255, 128, 1}, want: 96},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, meanLevel(tt.data))
		})
	}
}
