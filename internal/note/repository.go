package note

import (
	"strings"
	"sync"
)

// Repository owns the notes and the subject catalog of one session.
// Mutations are applied in call order and are visible to the next read.
type Repository struct {
	mu        sync.RWMutex
	notes     []Note
	subjects  []Subject
	observers map[int]func()
	nextID    int
}

// NewRepository creates a repository holding notes and the subject catalog.
// Stored subject counts are ignored; Subjects derives them from notes.
func NewRepository(notes []Note, subjects []Subject) *Repository {
	r := &Repository{
		notes:     make([]Note, 0, len(notes)),
		subjects:  make([]Subject, len(subjects)),
		observers: make(map[int]func()),
	}
	for _, n := range notes {
		r.notes = append(r.notes, n.clone())
	}
	copy(r.subjects, subjects)
	return r
}

// AddNote prepends n.
func (r *Repository) AddNote(n Note) {
	r.mu.Lock()
	r.notes = append([]Note{n.clone()}, r.notes...)
	r.mu.Unlock()

	r.notify()
}

// UpdateNote merges the non-nil fields of update into the note with id.
// It returns false without notifying anyone when no note matches.
func (r *Repository) UpdateNote(id string, update Update) bool {
	r.mu.Lock()
	index := r.indexOf(id)
	if index < 0 {
		r.mu.Unlock()
		return false
	}
	r.notes[index] = update.Apply(r.notes[index])
	r.mu.Unlock()

	r.notify()
	return true
}

// DeleteNote removes the note with id permanently.
func (r *Repository) DeleteNote(id string) bool {
	r.mu.Lock()
	index := r.indexOf(id)
	if index < 0 {
		r.mu.Unlock()
		return false
	}
	r.notes = append(r.notes[:index], r.notes[index+1:]...)
	r.mu.Unlock()

	r.notify()
	return true
}

// ToggleStarNote flips IsStarred of the note with id.
func (r *Repository) ToggleStarNote(id string) bool {
	r.mu.Lock()
	index := r.indexOf(id)
	if index < 0 {
		r.mu.Unlock()
		return false
	}
	r.notes[index].IsStarred = !r.notes[index].IsStarred
	r.mu.Unlock()

	r.notify()
	return true
}

func (r *Repository) GetNoteByID(id string) (Note, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	index := r.indexOf(id)
	if index < 0 {
		return Note{}, false
	}
	return r.notes[index].clone(), true
}

// Notes returns a snapshot of all notes, newest first.
func (r *Repository) Notes() []Note {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Note, 0, len(r.notes))
	for _, n := range r.notes {
		result = append(result, n.clone())
	}
	return result
}

// Filter returns the notes matching f, in repository order.
func (r *Repository) Filter(f Filter) []Note {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Note, 0)
	for _, n := range r.notes {
		if f.Match(n) {
			result = append(result, n.clone())
		}
	}
	return result
}

// Subjects returns the catalog with NoteCount recomputed from the current notes.
func (r *Repository) Subjects() []Subject {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.subjects))
	for _, n := range r.notes {
		counts[n.Subject]++
	}

	result := make([]Subject, len(r.subjects))
	for i, s := range r.subjects {
		s.NoteCount = counts[s.Name]
		result[i] = s
	}
	return result
}

// Subscribe registers fn to run after every effective mutation.
// Observers run synchronously on the mutating goroutine.
// The returned function removes the observer.
func (r *Repository) Subscribe(fn func()) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.observers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.observers, id)
		r.mu.Unlock()
	}
}

func (r *Repository) notify() {
	r.mu.RLock()
	observers := make([]func(), 0, len(r.observers))
	for i := 0; i < r.nextID; i++ {
		if fn, ok := r.observers[i]; ok {
			observers = append(observers, fn)
		}
	}
	r.mu.RUnlock()

	for _, fn := range observers {
		fn()
	}
}

func (r *Repository) indexOf(id string) int {
	for i, n := range r.notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Filter selects notes for listing.
type Filter struct {
	// Query matches title, content and tags case-insensitively.
	Query string
	// Subject matches the subject name. Empty or "all" matches every note.
	Subject     string
	StarredOnly bool
}

func (f Filter) Match(n Note) bool {
	if f.StarredOnly && !n.IsStarred {
		return false
	}
	if f.Subject != "" && !strings.EqualFold(f.Subject, "all") && n.Subject != f.Subject {
		return false
	}

	query := strings.ToLower(strings.TrimSpace(f.Query))
	if query == "" {
		return true
	}
	if strings.Contains(strings.ToLower(n.Title), query) ||
		strings.Contains(strings.ToLower(n.Content), query) {
		return true
	}
	for _, tag := range n.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	return false
}
