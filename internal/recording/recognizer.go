package recording

import (
	"context"
	"errors"
	"sync"
)

// ErrRecognizerActive is returned when a session is started twice.
var ErrRecognizerActive = errors.New("recognition has already started")

type RecognitionOptions struct {
	Language       string
	Continuous     bool
	InterimResults bool
}

// Result is one hypothesis of a recognition event.
type Result struct {
	Transcript string
	IsFinal    bool
}

// RecognitionEvent carries the results produced since the previous event.
type RecognitionEvent struct {
	Results []Result
}

// RecognitionCallbacks receive the events of one recognition session.
// OnEnd is called once when the session ends, whether it was stopped or ended on its own.
type RecognitionCallbacks struct {
	OnStart  func()
	OnResult func(RecognitionEvent)
	OnError  func(error)
	OnEnd    func()
}

// Recognizer is a streaming speech recognition service.
type Recognizer interface {
	Start(ctx context.Context, options RecognitionOptions, callbacks RecognitionCallbacks) error
	Stop() error
}

// Speech tells whether recognition is available on this platform.
type Speech struct {
	recognizer Recognizer
}

// Available wraps a recognizer.
func Available(r Recognizer) Speech {
	return Speech{recognizer: r}
}

// Unavailable reports that recording has to proceed without live transcription.
func Unavailable() Speech {
	return Speech{}
}

func (s Speech) IsAvailable() bool {
	return s.recognizer != nil
}

// ManualRecognizer is driven by its caller: text pushed into it is delivered as
// recognition results to the active session. Events are delivered on the caller's goroutine.
type ManualRecognizer struct {
	mu        sync.Mutex
	active    bool
	starts    int
	options   RecognitionOptions
	callbacks RecognitionCallbacks
}

var _ Recognizer = (*ManualRecognizer)(nil)

func NewManualRecognizer() *ManualRecognizer {
	return &ManualRecognizer{}
}

func (r *ManualRecognizer) Start(_ context.Context, options RecognitionOptions, callbacks RecognitionCallbacks) error {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return ErrRecognizerActive
	}
	r.active = true
	r.starts++
	r.options = options
	r.callbacks = callbacks
	r.mu.Unlock()

	if callbacks.OnStart != nil {
		callbacks.OnStart()
	}
	return nil
}

// Stop ends the active session. OnEnd is called like on every other session end.
func (r *ManualRecognizer) Stop() error {
	r.end()
	return nil
}

// EndSession ends the active session as if the platform had stopped listening.
func (r *ManualRecognizer) EndSession() {
	r.end()
}

// Push delivers text to the active session. It returns false when no session is active.
func (r *ManualRecognizer) Push(text string, isFinal bool) bool {
	return r.Deliver(RecognitionEvent{Results: []Result{{Transcript: text, IsFinal: isFinal}}})
}

// Deliver sends an event to the active session.
func (r *ManualRecognizer) Deliver(event RecognitionEvent) bool {
	r.mu.Lock()
	active := r.active
	callbacks := r.callbacks
	r.mu.Unlock()

	if !active {
		return false
	}
	if callbacks.OnResult != nil {
		callbacks.OnResult(event)
	}
	return true
}

// Fail reports an error to the active session.
func (r *ManualRecognizer) Fail(err error) {
	r.mu.Lock()
	active := r.active
	callbacks := r.callbacks
	r.mu.Unlock()

	if active && callbacks.OnError != nil {
		callbacks.OnError(err)
	}
}

// Starts returns how many sessions have been started.
func (r *ManualRecognizer) Starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.starts
}

func (r *ManualRecognizer) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Options returns the options of the last started session.
func (r *ManualRecognizer) Options() RecognitionOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options
}

func (r *ManualRecognizer) end() {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return
	}
	r.active = false
	callbacks := r.callbacks
	r.mu.Unlock()

	if callbacks.OnEnd != nil {
		callbacks.OnEnd()
	}
}
