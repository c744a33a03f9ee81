// Package recording captures a lecture and turns live speech recognition results
// into transcription segments.
package recording

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/at-ishikawa/preppal/internal/transcription"
)

var (
	ErrAlreadyRecording       = errors.New("recording is already in progress")
	ErrNotRecording           = errors.New("recording has not started")
	ErrRecognitionUnavailable = errors.New("speech recognition is not available; recording without live transcription")
)

type State int

const (
	StateIdle State = iota
	StateRecording
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StatePaused:
		return "paused"
	default:
		return "idle"
	}
}

// Callbacks are invoked outside of the engine lock and may call back into the engine,
// except OnComplete, which runs inside Stop.
type Callbacks struct {
	OnComplete     func([]transcription.Segment)
	OnSegment      func(transcription.Segment)
	OnInterim      func(string)
	OnLevel        func(float64)
	OnElapsed      func(int)
	OnTranscribing func(bool)
	OnWarning      func(error)
}

// Ticker is the subset of *time.Ticker used by the engine.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

type Options struct {
	Language string
	// SampleInterval is the period of audio level sampling.
	SampleInterval time.Duration
	NewTicker      func(time.Duration) Ticker
	NewID          func() string
	Logger         *slog.Logger
	Callbacks      Callbacks
}

const (
	defaultLanguage       = "en-US"
	defaultSampleInterval = 16 * time.Millisecond
	elapsedInterval       = time.Second
)

// Engine records one lecture at a time.
//
// Lifecycle operations are serialized by opMu. Recognizer start and stop calls are
// serialized by recMu so that an automatic restart never interleaves with them.
// mu guards the recording state.
type Engine struct {
	source  AudioSource
	speech  Speech
	options Options

	opMu  sync.Mutex
	recMu sync.Mutex

	mu           sync.Mutex
	state        State
	elapsed      int
	segments     []transcription.Segment
	interim      string
	transcribing bool
	generation   uint64
	stream       Stream
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewEngine(source AudioSource, speech Speech, options Options) *Engine {
	if options.Language == "" {
		options.Language = defaultLanguage
	}
	if options.SampleInterval <= 0 {
		options.SampleInterval = defaultSampleInterval
	}
	if options.NewTicker == nil {
		options.NewTicker = func(d time.Duration) Ticker {
			return timeTicker{time.NewTicker(d)}
		}
	}
	if options.NewID == nil {
		options.NewID = uuid.NewString
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	return &Engine{
		source:   source,
		speech:   speech,
		options:  options,
		segments: []transcription.Segment{},
	}
}

// Start acquires the capture stream and starts live recognition.
// When the stream cannot be acquired the engine stays idle.
func (e *Engine) Start(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return ErrAlreadyRecording
	}
	e.mu.Unlock()

	stream, err := e.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("source.Open > %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	e.state = StateRecording
	e.elapsed = 0
	e.segments = []transcription.Segment{}
	e.interim = ""
	e.stream = stream
	e.cancel = cancel
	e.mu.Unlock()

	e.wg.Add(2)
	go e.countElapsed(loopCtx)
	go e.sampleLevels(loopCtx, stream)

	e.startRecognition(ctx)
	e.options.Logger.Debug("recording started", "language", e.options.Language)
	return nil
}

// Pause stops recognition and the elapsed counter. Pausing twice is a no-op.
func (e *Engine) Pause() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	switch e.state {
	case StateIdle:
		e.mu.Unlock()
		return ErrNotRecording
	case StatePaused:
		e.mu.Unlock()
		return nil
	}
	e.state = StatePaused
	e.generation++
	wasTranscribing := e.setTranscribingLocked(false)
	e.mu.Unlock()

	e.stopRecognition()
	e.emitTranscribing(wasTranscribing, false)
	return nil
}

// Resume restarts recognition after Pause.
func (e *Engine) Resume(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	switch e.state {
	case StateIdle:
		e.mu.Unlock()
		return ErrNotRecording
	case StateRecording:
		e.mu.Unlock()
		return nil
	}
	e.state = StateRecording
	e.mu.Unlock()

	e.startRecognition(ctx)
	return nil
}

// Stop ends the recording, releases the capture stream and returns the segments.
// OnComplete receives the same segments, possibly none.
func (e *Engine) Stop() ([]transcription.Segment, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	segments, wasTranscribing, err := e.teardown()
	if err != nil {
		return nil, err
	}
	e.emitTranscribing(wasTranscribing, false)

	if e.options.Callbacks.OnComplete != nil {
		e.options.Callbacks.OnComplete(cloneSegments(segments))
	}
	e.options.Logger.Debug("recording stopped", "segments", len(segments))
	return segments, nil
}

// Close releases every capture resource without completing the recording.
func (e *Engine) Close() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	_, _, err := e.teardown()
	if errors.Is(err, ErrNotRecording) {
		return nil
	}
	return err
}

func (e *Engine) teardown() ([]transcription.Segment, bool, error) {
	e.mu.Lock()
	if e.state == StateIdle {
		e.mu.Unlock()
		return nil, false, ErrNotRecording
	}
	e.state = StateIdle
	e.generation++
	wasTranscribing := e.setTranscribingLocked(false)
	stream := e.stream
	cancel := e.cancel
	e.stream = nil
	e.cancel = nil
	e.interim = ""
	segments := cloneSegments(e.segments)
	e.mu.Unlock()

	e.stopRecognition()
	cancel()
	// A sampler blocked on the stream returns once it is closed.
	if err := stream.Close(); err != nil {
		e.options.Logger.Warn("failed to close the capture stream", "error", err)
	}
	e.wg.Wait()
	return segments, wasTranscribing, nil
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Elapsed returns the recorded seconds, excluding paused time.
func (e *Engine) Elapsed() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed
}

func (e *Engine) Segments() []transcription.Segment {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSegments(e.segments)
}

// Interim returns the text that has not been finalized yet.
func (e *Engine) Interim() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interim
}

func (e *Engine) Transcribing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transcribing
}

func (e *Engine) shouldListenLocked() bool {
	return e.state == StateRecording
}

func (e *Engine) startRecognition(ctx context.Context) {
	if !e.speech.IsAvailable() {
		e.warn(ErrRecognitionUnavailable)
		return
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	e.mu.Lock()
	e.generation++
	generation := e.generation
	e.mu.Unlock()

	if err := e.speech.recognizer.Start(ctx, e.recognitionOptions(), e.callbacksFor(generation)); err != nil {
		e.warn(fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err))
	}
}

func (e *Engine) stopRecognition() {
	if !e.speech.IsAvailable() {
		return
	}

	e.recMu.Lock()
	defer e.recMu.Unlock()

	if err := e.speech.recognizer.Stop(); err != nil {
		e.options.Logger.Warn("failed to stop speech recognition", "error", err)
	}
}

// restart starts a new session after the platform ended the current one.
// The state is checked under recMu, so a concurrent Stop or Pause either
// prevents the restart or stops the new session afterwards.
func (e *Engine) restart(ended uint64) {
	e.recMu.Lock()
	defer e.recMu.Unlock()

	e.mu.Lock()
	if ended != e.generation || !e.shouldListenLocked() {
		e.mu.Unlock()
		return
	}
	e.generation++
	generation := e.generation
	e.mu.Unlock()

	e.options.Logger.Debug("restarting speech recognition", "generation", generation)
	if err := e.speech.recognizer.Start(context.Background(), e.recognitionOptions(), e.callbacksFor(generation)); err != nil {
		e.warn(fmt.Errorf("%w: %v", ErrRecognitionUnavailable, err))
		return
	}

	e.mu.Lock()
	stillListening := generation == e.generation && e.shouldListenLocked()
	e.mu.Unlock()
	if !stillListening {
		if err := e.speech.recognizer.Stop(); err != nil {
			e.options.Logger.Warn("failed to stop speech recognition", "error", err)
		}
	}
}

func (e *Engine) recognitionOptions() RecognitionOptions {
	return RecognitionOptions{
		Language:       e.options.Language,
		Continuous:     true,
		InterimResults: true,
	}
}

func (e *Engine) callbacksFor(generation uint64) RecognitionCallbacks {
	return RecognitionCallbacks{
		OnStart: func() {
			e.mu.Lock()
			if generation != e.generation {
				e.mu.Unlock()
				return
			}
			wasTranscribing := e.setTranscribingLocked(true)
			e.mu.Unlock()
			e.emitTranscribing(wasTranscribing, true)
		},
		OnResult: func(event RecognitionEvent) {
			e.handleResult(generation, event)
		},
		OnError: func(err error) {
			e.mu.Lock()
			current := generation == e.generation
			e.mu.Unlock()
			if current {
				e.warn(fmt.Errorf("speech recognition error: %w", err))
			}
		},
		OnEnd: func() {
			e.handleEnd(generation)
		},
	}
}

func (e *Engine) handleResult(generation uint64, event RecognitionEvent) {
	var final, interim strings.Builder
	for _, result := range event.Results {
		if result.IsFinal {
			final.WriteString(result.Transcript)
		} else {
			interim.WriteString(result.Transcript)
		}
	}

	e.mu.Lock()
	if generation != e.generation || e.state == StateIdle {
		e.mu.Unlock()
		return
	}

	var segment *transcription.Segment
	if final.Len() > 0 {
		e.interim = ""
		if text := strings.TrimSpace(final.String()); text != "" {
			segment = &transcription.Segment{
				ID:        e.options.NewID(),
				Timestamp: e.elapsed,
				Text:      text,
				IsFinal:   true,
			}
			e.segments = append(e.segments, *segment)
		}
	} else {
		e.interim = interim.String()
	}
	currentInterim := e.interim
	e.mu.Unlock()

	if segment != nil && e.options.Callbacks.OnSegment != nil {
		e.options.Callbacks.OnSegment(*segment)
	}
	if e.options.Callbacks.OnInterim != nil {
		e.options.Callbacks.OnInterim(currentInterim)
	}
}

func (e *Engine) handleEnd(generation uint64) {
	e.mu.Lock()
	if generation != e.generation {
		e.mu.Unlock()
		return
	}
	wasTranscribing := e.setTranscribingLocked(false)
	shouldListen := e.shouldListenLocked()
	e.mu.Unlock()

	e.emitTranscribing(wasTranscribing, false)
	if shouldListen {
		e.restart(generation)
	}
}

func (e *Engine) countElapsed(ctx context.Context) {
	defer e.wg.Done()

	ticker := e.options.NewTicker(elapsedInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			e.mu.Lock()
			if e.state != StateRecording {
				e.mu.Unlock()
				continue
			}
			e.elapsed++
			elapsed := e.elapsed
			e.mu.Unlock()

			if e.options.Callbacks.OnElapsed != nil {
				e.options.Callbacks.OnElapsed(elapsed)
			}
		}
	}
}

func (e *Engine) sampleLevels(ctx context.Context, stream Stream) {
	defer e.wg.Done()

	ticker := e.options.NewTicker(e.options.SampleInterval)
	defer ticker.Stop()
	data := make([]byte, stream.FrequencyBinCount())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			stream.ByteFrequencyData(data)
			if e.options.Callbacks.OnLevel != nil {
				e.options.Callbacks.OnLevel(meanLevel(data))
			}
		}
	}
}

func (e *Engine) setTranscribingLocked(value bool) bool {
	previous := e.transcribing
	e.transcribing = value
	return previous
}

func (e *Engine) emitTranscribing(previous, current bool) {
	if previous != current && e.options.Callbacks.OnTranscribing != nil {
		e.options.Callbacks.OnTranscribing(current)
	}
}

func (e *Engine) warn(err error) {
	e.options.Logger.Warn("recording warning", "error", err)
	if e.options.Callbacks.OnWarning != nil {
		e.options.Callbacks.OnWarning(err)
	}
}

func cloneSegments(segments []transcription.Segment) []transcription.Segment {
	result := make([]transcription.Segment, len(segments))
	copy(result, segments)
	return result
}
