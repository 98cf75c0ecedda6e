package ledger

import (
	"context"
	"errors"
	"testing"

	"textback_backend/platform/logger"
)

type fakeStore struct {
	claimOutcome ClaimOutcome
	claimErr     error
	commits      []string
	commitErr    error
}

func (f *fakeStore) Claim(_ context.Context, _, _ string) (ClaimOutcome, error) {
	return f.claimOutcome, f.claimErr
}

func (f *fakeStore) Commit(_ context.Context, _, status string) error {
	f.commits = append(f.commits, status)
	return f.commitErr
}

func testLogger() *logger.Logger {
	return logger.New("test")
}

func TestWithClaimRunsAndCommitsProcessed(t *testing.T) {
	store := &fakeStore{claimOutcome: Claimed}
	svc := NewService(store, testLogger())

	ran := false
	result, err := svc.WithClaim(context.Background(), "evt-1", EventTypeCall, func(context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("expected handler to run")
	}
	if result != Processed {
		t.Fatalf("expected Processed, got %v", result)
	}
	if len(store.commits) != 1 || store.commits[0] != StatusProcessed {
		t.Fatalf("expected single processed commit, got %v", store.commits)
	}
}

func TestWithClaimDuplicateShortCircuits(t *testing.T) {
	store := &fakeStore{claimOutcome: Duplicate}
	svc := NewService(store, testLogger())

	result, err := svc.WithClaim(context.Background(), "evt-1", EventTypeCall, func(context.Context) error {
		t.Fatal("handler must not run for a duplicate")
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != Skipped {
		t.Fatalf("expected Skipped, got %v", result)
	}
	if len(store.commits) != 0 {
		t.Fatalf("expected no commits for a duplicate, got %v", store.commits)
	}
}

func TestWithClaimStorageErrorAbortsBeforeHandler(t *testing.T) {
	store := &fakeStore{claimErr: errors.New("connection refused")}
	svc := NewService(store, testLogger())

	result, err := svc.WithClaim(context.Background(), "evt-1", EventTypeCall, func(context.Context) error {
		t.Fatal("handler must not run when the claim errors")
		return nil
	})
	if err == nil {
		t.Fatal("expected claim error to propagate")
	}
	if result != ClaimFailed {
		t.Fatalf("expected ClaimFailed, got %v", result)
	}
	if len(store.commits) != 0 {
		t.Fatalf("expected no commits, got %v", store.commits)
	}
}

func TestWithClaimHandlerErrorCommitsFailed(t *testing.T) {
	store := &fakeStore{claimOutcome: Claimed}
	svc := NewService(store, testLogger())

	handlerErr := errors.New("business not found")
	result, err := svc.WithClaim(context.Background(), "evt-1", EventTypeMessage, func(context.Context) error {
		return handlerErr
	})
	if !errors.Is(err, handlerErr) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if result != Errored {
		t.Fatalf("expected Errored, got %v", result)
	}
	if len(store.commits) != 1 || store.commits[0] != StatusFailed {
		t.Fatalf("expected single failed commit, got %v", store.commits)
	}
}

func TestWithClaimCommitErrorNotReturnedAfterSuccess(t *testing.T) {
	store := &fakeStore{claimOutcome: Claimed, commitErr: errors.New("deadline exceeded")}
	svc := NewService(store, testLogger())

	_, err := svc.WithClaim(context.Background(), "evt-1", EventTypeCall, func(context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("commit error must not fail the request after side effects completed: %v", err)
	}
}

func TestWithClaimPanicStillCommitsFailed(t *testing.T) {
	store := &fakeStore{claimOutcome: Claimed}
	svc := NewService(store, testLogger())

	func() {
		defer func() { _ = recover() }()
		_, _ = svc.WithClaim(context.Background(), "evt-1", EventTypeCall, func(context.Context) error {
			panic("boom")
		})
	}()

	if len(store.commits) != 1 || store.commits[0] != StatusFailed {
		t.Fatalf("expected failed commit on panic, got %v", store.commits)
	}
}
