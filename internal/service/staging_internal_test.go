package service

import (
	"context"
	"testing"
	"time"
)

func TestStagingCleanupStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewStagingService(ctx, nil, 800, 85)

	select {
	case <-s.stopped:
		t.Fatal("cleanup stopped before cancel")
	default:
	}

	cancel()
	select {
	case <-s.stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("cleanup goroutine still running after cancel")
	}
}
