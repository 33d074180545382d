package imageprep

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle stage of an upload session.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StatePreviewing
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StatePreviewing:
		return "previewing"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrSubmitting        = errors.New("session is submitting")
	ErrNoItem            = errors.New("no such item")
)

// SourceFile is a user-selected file as received.
type SourceFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Variant is a staged, not-yet-uploaded image.
type Variant struct {
	ID          string
	Filename    string
	ContentType string
	Width       int
	Height      int
	TargetWidth int
	Caption     string

	data []byte
}

// Prepared is a variant after resizing, in submission order.
type Prepared struct {
	Filename    string
	ContentType string
	Data        []byte
	Caption     string
	Width       int
	Height      int
}

// Warning describes a file that was left out of the batch.
type Warning struct {
	Filename string
	Message  string
}

// ItemView is a read-only copy of a variant for rendering.
type ItemView struct {
	Index       int
	ID          string
	Filename    string
	Width       int
	Height      int
	TargetWidth int
	Caption     string
}

// Snapshot is a consistent read-only copy of a session.
type Snapshot struct {
	ID       string
	ReviewID int64
	State    State
	MaxWidth int
	Items    []ItemView
	Err      string
}

// Session holds the staged variants for one upload affordance. All methods
// are safe for concurrent use.
type Session struct {
	ID       string
	ReviewID int64

	mu       sync.Mutex
	state    State
	maxWidth int
	quality  int
	variants []*Variant
	lastErr  string
	touched  time.Time
}

// NewSession creates an idle session for a review.
func NewSession(reviewID int64, maxWidth, quality int) *Session {
	return &Session{
		ID:       uuid.NewString(),
		ReviewID: reviewID,
		state:    StateIdle,
		maxWidth: max(maxWidth, MinTargetWidth),
		quality:  quality,
		touched:  time.Now(),
	}
}

// Open moves an idle or finished session to Selecting.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch s.state {
	case StateIdle, StateSucceeded:
		s.state = StateSelecting
		s.lastErr = ""
		return nil
	case StateSelecting:
		return nil
	default:
		return fmt.Errorf("%w: open from %s", ErrInvalidTransition, s.state)
	}
}

// Add fully decodes each file and stages the images. Non-image files and
// files that fail to decode, including truncated ones, are skipped and reported as warnings; they never fail the
// rest of the batch.
func (s *Session) Add(files []SourceFile) ([]Warning, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch s.state {
	case StateSelecting, StatePreviewing, StateFailed:
	case StateSubmitting:
		return nil, ErrSubmitting
	default:
		return nil, fmt.Errorf("%w: add from %s", ErrInvalidTransition, s.state)
	}

	var warnings []Warning
	for _, f := range files {
		dims, err := Decode(f.ContentType, f.Data)
		if err != nil {
			msg := "could not be read as an image"
			if errors.Is(err, ErrNotImage) {
				msg = "is not an image"
			}
			warnings = append(warnings, Warning{Filename: f.Filename, Message: msg})
			continue
		}
		s.variants = append(s.variants, &Variant{
			ID:          uuid.NewString(),
			Filename:    f.Filename,
			ContentType: f.ContentType,
			Width:       dims.Width,
			Height:      dims.Height,
			TargetWidth: ClampWidth(dims.Width, dims.Width, s.maxWidth),
			data:        f.Data,
		})
	}

	if len(s.variants) > 0 && s.state == StateSelecting {
		s.state = StatePreviewing
	}
	return warnings, nil
}

// SetCaption updates the caption of item i.
func (s *Session) SetCaption(i int, caption string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.editable(i)
	if err != nil {
		return err
	}
	v.Caption = caption
	return nil
}

// SetTargetWidth sets item i's target width, clamped to its bounds.
func (s *Session) SetTargetWidth(i, width int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.editable(i)
	if err != nil {
		return 0, err
	}
	v.TargetWidth = ClampWidth(width, v.Width, s.maxWidth)
	return v.TargetWidth, nil
}

// SetGlobalMaxWidth changes the session-wide maximum and re-clamps every
// item. Items only ever shrink here; raising the maximum leaves targets as
// they were.
func (s *Session) SetGlobalMaxWidth(width int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateSubmitting {
		return ErrSubmitting
	}

	s.maxWidth = max(width, MinTargetWidth)
	for _, v := range s.variants {
		v.TargetWidth = ClampWidth(v.TargetWidth, v.Width, s.maxWidth)
	}
	return nil
}

// Remove drops item i and releases its bytes.
func (s *Session) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, err := s.editable(i)
	if err != nil {
		return err
	}
	v.data = nil
	s.variants = append(s.variants[:i], s.variants[i+1:]...)
	if len(s.variants) == 0 && s.state == StatePreviewing {
		s.state = StateSelecting
	}
	return nil
}

// Cancel releases every staged item and returns the session to Idle.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state == StateSubmitting {
		return ErrSubmitting
	}
	s.release()
	s.state = StateIdle
	s.lastErr = ""
	return nil
}

// Preview returns the staged bytes of item i.
func (s *Session) Preview(i int) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if i < 0 || i >= len(s.variants) {
		return nil, "", ErrNoItem
	}
	v := s.variants[i]
	return v.data, v.ContentType, nil
}

// BeginSubmit freezes the session and resizes every item in order. Once it
// returns without error the session stays in Submitting until Complete.
func (s *Session) BeginSubmit() ([]Prepared, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	switch s.state {
	case StatePreviewing, StateFailed:
	case StateSubmitting:
		return nil, ErrSubmitting
	default:
		return nil, fmt.Errorf("%w: submit from %s", ErrInvalidTransition, s.state)
	}
	if len(s.variants) == 0 {
		return nil, fmt.Errorf("%w: nothing to submit", ErrInvalidTransition)
	}

	prepared := make([]Prepared, 0, len(s.variants))
	for _, v := range s.variants {
		out, err := Resize(v.data, v.ContentType, v.Width, v.Height, v.TargetWidth, s.quality)
		if err != nil {
			s.state = StateFailed
			s.lastErr = fmt.Sprintf("%s: %v", v.Filename, err)
			return nil, fmt.Errorf("prepare %s: %w", v.Filename, err)
		}
		prepared = append(prepared, Prepared{
			Filename:    v.Filename,
			ContentType: out.ContentType,
			Data:        out.Data,
			Caption:     v.Caption,
			Width:       out.Width,
			Height:      out.Height,
		})
	}

	s.state = StateSubmitting
	s.lastErr = ""
	return prepared, nil
}

// Complete ends a submission. On success all staged items are released; on
// failure they stay so the user can retry or cancel.
func (s *Session) Complete(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if s.state != StateSubmitting {
		return
	}
	if err != nil {
		s.state = StateFailed
		s.lastErr = err.Error()
		return
	}
	s.release()
	s.state = StateSucceeded
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IdleSince reports when the session was last used.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Snapshot returns a copy of the session for rendering.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]ItemView, len(s.variants))
	for i, v := range s.variants {
		items[i] = ItemView{
			Index:       i,
			ID:          v.ID,
			Filename:    v.Filename,
			Width:       v.Width,
			Height:      v.Height,
			TargetWidth: v.TargetWidth,
			Caption:     v.Caption,
		}
	}
	return Snapshot{
		ID:       s.ID,
		ReviewID: s.ReviewID,
		State:    s.state,
		MaxWidth: s.maxWidth,
		Items:    items,
		Err:      s.lastErr,
	}
}

// Release drops all staged bytes regardless of state. Used when an expired
// session is evicted.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.release()
}

func (s *Session) editable(i int) (*Variant, error) {
	s.touch()
	if s.state == StateSubmitting {
		return nil, ErrSubmitting
	}
	if i < 0 || i >= len(s.variants) {
		return nil, ErrNoItem
	}
	return s.variants[i], nil
}

func (s *Session) release() {
	for _, v := range s.variants {
		v.data = nil
	}
	s.variants = nil
}

func (s *Session) touch() {
	s.touched = time.Now()
}
