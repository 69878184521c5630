//go:build !integration

package model

import (
	"errors"
	"testing"
	"time"

	"analysis-gateway/internal/domain"
)

// --- User Model Tests ---

func TestNewUser(t *testing.T) {
	reset := time.Now().Add(30 * 24 * time.Hour)

	t.Run("should create a new user successfully", func(t *testing.T) {
		user, err := NewUser(42, "doc@example.com", 2, reset)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if user.ID != 42 || user.PlanID != 2 {
			t.Errorf("unexpected ids: %+v", user)
		}
		if user.UsedRequests != 0 {
			t.Errorf("expected a fresh counter, got %d", user.UsedRequests)
		}
		if !user.ResetDate.Equal(reset) {
			t.Errorf("expected reset date %v, got %v", reset, user.ResetDate)
		}
	})

	t.Run("should fail with invalid ids", func(t *testing.T) {
		if _, err := NewUser(0, "doc@example.com", 2, reset); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for user id 0, got %v", err)
		}
		if _, err := NewUser(1, "doc@example.com", -1, reset); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for plan id -1, got %v", err)
		}
	})

	t.Run("should fail with malformed email", func(t *testing.T) {
		for _, email := range []string{"", "doc", "doc@host", "a b@host.com"} {
			if _, err := NewUser(1, email, 1, reset); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("email %q: expected ErrInvalidArgument, got %v", email, err)
			}
		}
	})
}

// --- Quota Tests ---

func TestQuotaRecord(t *testing.T) {
	q := &QuotaRecord{UserID: 1, Used: 5, Total: 10}

	snap := q.Snapshot()
	if snap.Used != 5 || snap.Total != 10 || snap.Remaining != 5 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

// --- Analysis Tests ---

func TestNormalizeType(t *testing.T) {
	if got := NormalizeType("  Diagnosis "); got != "diagnosis" {
		t.Errorf("expected diagnosis, got %q", got)
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	if JobStatusRunning.IsTerminal() {
		t.Error("running must not be terminal")
	}
	for _, s := range []JobStatus{JobStatusSucceeded, JobStatusFailed, JobStatusCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
}
