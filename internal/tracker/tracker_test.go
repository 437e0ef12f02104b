package tracker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionocr/pdf2word/internal/tracker"
)

func TestJobLifecycle(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	id := reg.Create("report", 0, nil)

	snap, ok := reg.Get(id)
	require.True(t, ok)
	assert.Equal(t, tracker.StatusPending, snap.Status)

	reg.Start(id, 4)
	reg.UpdateProgress(id)
	reg.UpdateProgress(id)

	snap, _ = reg.Get(id)
	assert.Equal(t, tracker.StatusRunning, snap.Status)
	assert.Equal(t, 4, snap.PagesTotal)
	assert.Equal(t, 2, snap.PagesCompleted)

	reg.Complete(id, "output/word/report.docx")
	snap, _ = reg.Get(id)
	assert.Equal(t, tracker.StatusCompleted, snap.Status)
	assert.Equal(t, "output/word/report.docx", snap.OutputPath)
}

func TestConcurrentProgressUpdates(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	id := reg.Create("big", 0, nil)
	reg.Start(id, 500)

	var wg sync.WaitGroup
	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.UpdateProgress(id)
		}()
	}
	wg.Wait()

	snap, _ := reg.Get(id)
	assert.Equal(t, 500, snap.PagesCompleted, "no two updates may race and lose a count")
}

func TestPageErrorsAttributable(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	id := reg.Create("flaky", 0, nil)
	reg.Start(id, 3)
	reg.AddPageError(id, 1, "retries exhausted")

	snap, _ := reg.Get(id)
	require.Len(t, snap.PageErrors, 1)
	assert.Equal(t, 1, snap.PageErrors[0].Page)
	assert.Contains(t, snap.PageErrors[0].Error, "retries")
}

func TestFailSetsCause(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	id := reg.Create("broken", 0, nil)
	reg.Fail(id, assert.AnError)

	snap, _ := reg.Get(id)
	assert.Equal(t, tracker.StatusFailed, snap.Status)
	assert.NotEmpty(t, snap.Error)
}

func TestCancelInvokesJobCancel(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	ctx, cancel := context.WithCancel(context.Background())
	id := reg.Create("slow", 10, cancel)

	require.True(t, reg.Cancel(id))
	select {
	case <-ctx.Done():
	default:
		t.Fatal("cancel func was not invoked")
	}
	snap, _ := reg.Get(id)
	assert.Equal(t, tracker.StatusFailed, snap.Status)

	assert.False(t, reg.Cancel("no-such-job"))
}

func TestPauseGatesDispatch(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	id := reg.Create("paused", 3, nil)
	reg.Start(id, 3)
	require.True(t, reg.Pause(id))

	snap, _ := reg.Get(id)
	assert.Equal(t, tracker.StatusPaused, snap.Status)

	released := make(chan error, 1)
	go func() { released <- reg.WaitIfPaused(context.Background(), id) }()
	select {
	case <-released:
		t.Fatal("WaitIfPaused returned while paused")
	case <-time.After(20 * time.Millisecond):
	}

	require.True(t, reg.Resume(id))
	select {
	case err := <-released:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitIfPaused did not release on resume")
	}

	snap, _ = reg.Get(id)
	assert.Equal(t, tracker.StatusRunning, snap.Status)
	assert.False(t, reg.Resume(id), "resume on a running job is a no-op")
	assert.False(t, reg.Pause("no-such-job"))
}

func TestWaitIfPausedHonoursContext(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	id := reg.Create("stuck", 1, nil)
	reg.Start(id, 1)
	require.True(t, reg.Pause(id))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, reg.WaitIfPaused(ctx, id), context.DeadlineExceeded)
}

func TestPausedTimeExcludedFromElapsed(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	id := reg.Create("timed", 1, nil)
	reg.Start(id, 1)
	require.True(t, reg.Pause(id))
	time.Sleep(60 * time.Millisecond)
	require.True(t, reg.Resume(id))

	snap, _ := reg.Get(id)
	assert.Less(t, snap.Elapsed, 0.05, "elapsed must not count time spent paused")
}

func TestEvictionAfterRetrieval(t *testing.T) {
	reg := tracker.NewRegistry(time.Millisecond, nil)
	id := reg.Create("done", 1, nil)
	reg.Complete(id, "out.docx")

	// Not yet retrieved: sweep must keep it.
	assert.Equal(t, 0, reg.Sweep(time.Now().Add(time.Hour)))

	_, ok := reg.Get(id)
	require.True(t, ok)

	// Retrieved and past retention: evicted.
	assert.Equal(t, 1, reg.Sweep(time.Now().Add(time.Hour)))
	_, ok = reg.Get(id)
	assert.False(t, ok)
}

func TestActiveExcludesTerminal(t *testing.T) {
	reg := tracker.NewRegistry(time.Minute, nil)
	running := reg.Create("running", 2, nil)
	reg.Start(running, 2)
	finished := reg.Create("finished", 1, nil)
	reg.Complete(finished, "x.docx")

	active := reg.Active()
	require.Len(t, active, 1)
	assert.Equal(t, running, active[0].ID)
}
