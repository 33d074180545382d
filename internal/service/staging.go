package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/msomdec/field-review/internal/domain"
	"github.com/msomdec/field-review/internal/imageprep"
)

// SessionTTL is how long an untouched staging session is kept.
const SessionTTL = 30 * time.Minute

// StagingService keeps in-progress upload sessions in memory, one per open
// upload panel, and hands submitted batches to the IngestService.
type StagingService struct {
	mu       sync.Mutex
	sessions map[string]*stagedSession
	ingest   *IngestService
	maxWidth int
	quality  int
	stopped  chan struct{}
}

type stagedSession struct {
	owner   string
	session *imageprep.Session
}

// NewStagingService creates a session store. It starts a background
// goroutine that evicts sessions idle for longer than SessionTTL until ctx
// is done.
func NewStagingService(ctx context.Context, ingest *IngestService, maxWidth, quality int) *StagingService {
	s := &StagingService{
		sessions: make(map[string]*stagedSession),
		ingest:   ingest,
		maxWidth: maxWidth,
		quality:  quality,
		stopped:  make(chan struct{}),
	}
	go s.cleanup(ctx)
	return s
}

// Open starts a new session for reviewID owned by owner and moves it to
// Selecting.
func (s *StagingService) Open(owner string, reviewID int64) (*imageprep.Session, error) {
	if reviewID <= 0 {
		return nil, fmt.Errorf("%w: review id is required", domain.ErrInvalidInput)
	}
	sess := imageprep.NewSession(reviewID, s.maxWidth, s.quality)
	if err := sess.Open(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &stagedSession{owner: owner, session: sess}
	s.mu.Unlock()
	return sess, nil
}

// Get returns the session if it exists and belongs to owner.
func (s *StagingService) Get(owner, id string) (*imageprep.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.sessions[id]
	if !ok || st.owner != owner {
		return nil, domain.ErrNotFound
	}
	return st.session, nil
}

// Submit resizes the staged items and uploads them in order. On success the
// session is cleared and dropped from the store; on failure it is kept so the
// user can retry or cancel.
func (s *StagingService) Submit(ctx context.Context, owner, id string) (Progress, error) {
	sess, err := s.Get(owner, id)
	if err != nil {
		return Progress{}, err
	}

	prepared, err := sess.BeginSubmit()
	if err != nil {
		return Progress{}, fmt.Errorf("prepare batch: %w", err)
	}

	items := make([]UploadItem, len(prepared))
	for i, p := range prepared {
		items[i] = UploadItem{
			Filename:    p.Filename,
			ContentType: p.ContentType,
			Data:        p.Data,
			Caption:     p.Caption,
			Width:       p.Width,
			Height:      p.Height,
		}
	}

	progress, err := s.ingest.UploadBatch(ctx, sess.ReviewID, items)
	sess.Complete(err)
	if err != nil {
		slog.Warn("staged batch failed", "session", id, "review_id", sess.ReviewID,
			"succeeded", progress.Succeeded, "total", progress.Total, "error", err)
		return progress, err
	}
	s.drop(id)
	return progress, nil
}

// Cancel releases the session's staged images and forgets it.
func (s *StagingService) Cancel(owner, id string) error {
	sess, err := s.Get(owner, id)
	if err != nil {
		return err
	}
	if err := sess.Cancel(); err != nil {
		return err
	}
	s.drop(id)
	return nil
}

// Len reports the number of live sessions.
func (s *StagingService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep evicts sessions idle since before now-SessionTTL and returns how many
// were removed. Sessions mid-submit are left alone.
func (s *StagingService) Sweep(now time.Time) int {
	cutoff := now.Add(-SessionTTL)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.sessions {
		if st.session.State() == imageprep.StateSubmitting {
			continue
		}
		if st.session.IdleSince().Before(cutoff) {
			st.session.Release()
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *StagingService) drop(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// cleanup runs periodically and evicts idle sessions.
func (s *StagingService) cleanup(ctx context.Context) {
	defer close(s.stopped)
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(time.Now()); n > 0 {
				slog.Info("evicted idle staging sessions", "count", n)
			}
		}
	}
}
