package pregen

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"slidegraph/internal/domain/models/llm"
	"slidegraph/internal/domain/models/slide"
	llmSvc "slidegraph/internal/domain/services/llm"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGenerator emits one partial, blocks until released, emits a second
// partial and returns a slide named after the prompt
type fakeGenerator struct {
	release   chan struct{}
	cancelled chan string
	noSlide   bool

	mu         sync.Mutex
	running    int
	maxRunning int
	calls      []string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		release:   make(chan struct{}),
		cancelled: make(chan string, 16),
	}
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, history llm.History, emit llmSvc.EmitFunc) (*llmSvc.GenerationResult, error) {
	g.mu.Lock()
	g.running++
	g.maxRunning = max(g.maxRunning, g.running)
	g.calls = append(g.calls, prompt)
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		g.running--
		g.mu.Unlock()
	}()

	_ = emit(ctx, slide.Partial(&slide.Slide{ID: "before-" + prompt}))

	select {
	case <-ctx.Done():
		g.cancelled <- prompt
		return nil, ctx.Err()
	case <-g.release:
	}

	_ = emit(ctx, slide.Partial(&slide.Slide{ID: "after-" + prompt}))
	if g.noSlide {
		return nil, nil
	}
	h := append(history.Clone(), llm.NewUserText(prompt))
	return &llmSvc.GenerationResult{Slide: &slide.Slide{ID: "slide-" + prompt, Title: prompt}, History: h}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func newCoordinator(t *testing.T, g llmSvc.Generator, maxConcurrent int) *Coordinator {
	t.Helper()
	c := NewCoordinator(g, maxConcurrent, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(c.Close)
	return c
}

var history = llm.History{llm.NewUserText("Explain photosynthesis")}

func TestCoordinator_SpeculateAndSnapshot(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)

	jobs := c.Speculate("A", history, []string{"Show example", "Quiz me", "", "Show example"})
	require.Len(t, jobs, 2)
	assert.Equal(t, "A", c.Current())

	snap := c.Snapshot("A")
	require.Len(t, snap, 2)
	assert.Equal(t, "Show example", snap[0].Prompt)
	assert.Equal(t, "Quiz me", snap[1].Prompt)
	assert.False(t, snap[0].Complete)
	assert.Equal(t, "running", snap[0].Status)
	assert.Empty(t, c.Snapshot("B"))

	close(g.release)
	for _, job := range jobs {
		result, err := job.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "slide-"+job.Prompt(), result.Slide.ID)
		assert.Len(t, result.History, 2)
	}
	for _, entry := range c.Snapshot("A") {
		assert.True(t, entry.Complete)
		assert.False(t, entry.Claimed)
		assert.Equal(t, "complete", entry.Status)
	}
}

func TestCoordinator_SpeculateSameNodeKeepsJobs(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)

	first := c.Speculate("A", history, []string{"Show example"})
	again := c.Speculate("A", history, []string{"Show example", "Quiz me"})

	require.Len(t, first, 1)
	require.Len(t, again, 1)
	assert.Equal(t, "Quiz me", again[0].Prompt())
	assert.Len(t, c.Snapshot("A"), 2)

	select {
	case <-first[0].Done():
		t.Fatal("existing job was restarted")
	default:
	}
}

func TestCoordinator_ClaimExclusivity(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)
	c.Speculate("A", history, []string{"Show example"})

	var firsts atomic.Int32
	var commits atomic.Int32
	ids := make([]string, 8)

	var wg sync.WaitGroup
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, first := c.Claim("A", "Show example")
			if !assert.NotNil(t, job) {
				return
			}
			if first {
				firsts.Add(1)
			}
			id, result, err := job.Commit(context.Background(), func(ctx context.Context, r *llmSvc.GenerationResult) (string, error) {
				commits.Add(1)
				return "node-" + r.Slide.ID, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, "slide-Show example", result.Slide.ID)
			ids[i] = id
		}(i)
	}

	close(g.release)
	wg.Wait()

	assert.Equal(t, int32(1), firsts.Load())
	assert.Equal(t, int32(1), commits.Load())
	assert.Equal(t, 1, g.callCount(), "a claimed branch is generated once")
	for _, id := range ids {
		assert.Equal(t, "node-slide-Show example", id)
	}

	snap := c.Snapshot("A")
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Claimed)
	assert.Equal(t, "node-slide-Show example", snap[0].ResultingNodeID)
}

func TestCoordinator_ClaimMisses(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)
	c.Speculate("A", history, []string{"Show example"})

	job, first := c.Claim("B", "Show example")
	assert.Nil(t, job, "claim from a non-current node")
	assert.False(t, first)

	job, _ = c.Claim("A", "Something else")
	assert.Nil(t, job, "no entry for prompt")
}

func TestCoordinator_InvalidationOnNavigation(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)

	jobs := c.Speculate("A", history, []string{"Show example"})
	require.Len(t, jobs, 1)
	job := jobs[0]
	require.Eventually(t, func() bool { return g.callCount() == 1 }, time.Second, time.Millisecond)

	// The user follows a link to C instead of clicking the branch
	c.Speculate("C", history, nil)

	select {
	case <-job.Done():
	case <-time.After(time.Second):
		t.Fatal("job was not cancelled")
	}
	_, err := job.Wait(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Show example", <-g.cancelled)

	assert.Empty(t, c.Snapshot("A"))
	claimed, _ := c.Claim("A", "Show example")
	assert.Nil(t, claimed)
	assert.Equal(t, "C", c.Current())
}

func TestCoordinator_InvalidateQueuedJob(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 1)

	// One job holds the only slot, the other waits for it
	jobs := c.Speculate("A", history, []string{"one", "two"})
	require.Eventually(t, func() bool { return g.callCount() == 1 }, time.Second, time.Millisecond)

	c.Invalidate()

	for _, job := range jobs {
		_, err := job.Wait(context.Background())
		assert.ErrorIs(t, err, context.Canceled, job.Prompt())
		assert.False(t, job.Complete())
	}
}

func TestCoordinator_Invalidate(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)
	jobs := c.Speculate("A", history, []string{"Show example", "Quiz me"})

	c.Invalidate()

	for _, job := range jobs {
		<-job.Done()
		assert.False(t, job.Complete())
	}
	assert.Empty(t, c.Current())
	assert.Empty(t, c.Snapshot("A"))
}

func TestCoordinator_ConcurrencyLimit(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 1)
	jobs := c.Speculate("A", history, []string{"one", "two", "three"})

	require.Eventually(t, func() bool { return g.callCount() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, g.callCount())

	close(g.release)
	for _, job := range jobs {
		_, err := job.Wait(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, g.maxRunning)
	assert.Equal(t, 3, g.callCount())
}

func TestJob_SubscribeForwardsTaggedPartials(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)
	job := c.Speculate("A", history, []string{"Show example"})[0]

	// Wait for the first partial, then subscribe
	require.Eventually(t, func() bool {
		_, latest, unsubscribe := job.Subscribe()
		unsubscribe()
		return latest != nil
	}, time.Second, time.Millisecond)

	events, latest, unsubscribe := job.Subscribe()
	defer unsubscribe()
	assert.Equal(t, "before-Show example", latest.ID)

	close(g.release)

	var got []slide.Event
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 1)
	assert.Equal(t, slide.EventSlidePartial, got[0].Type)
	assert.Equal(t, "after-Show example", got[0].Slide.ID)
	assert.Equal(t, "Show example", got[0].Prompt)

	// Subscribing to a finished job yields a closed channel
	late, _, _ := job.Subscribe()
	_, open := <-late
	assert.False(t, open)
}

func TestJob_NoSlide(t *testing.T) {
	g := newFakeGenerator()
	g.noSlide = true
	c := newCoordinator(t, g, 4)
	job := c.Speculate("A", history, []string{"Show example"})[0]
	close(g.release)

	_, err := job.Wait(context.Background())
	assert.ErrorIs(t, err, ErrNoSlide)
	assert.False(t, job.Complete())

	called := false
	_, _, err = job.Commit(context.Background(), func(context.Context, *llmSvc.GenerationResult) (string, error) {
		called = true
		return "", nil
	})
	assert.ErrorIs(t, err, ErrNoSlide)
	assert.False(t, called)
}

func TestJob_WaitRespectsContext(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)
	job := c.Speculate("A", history, []string{"Show example"})[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := job.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestJob_CommitOutlivesFirstClaimer(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)
	c.Speculate("A", history, []string{"Show example"})
	close(g.release)

	job, first := c.Claim("A", "Show example")
	require.NotNil(t, job)
	require.True(t, first)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	id, _, err := job.Commit(ctx, func(commitCtx context.Context, r *llmSvc.GenerationResult) (string, error) {
		// The first claimer disconnects while the node is being written
		cancel()
		if err := commitCtx.Err(); err != nil {
			return "", err
		}
		return "node-" + r.Slide.ID, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "node-slide-Show example", id)

	// A later claimer shares the same commit
	again, first := c.Claim("A", "Show example")
	assert.False(t, first)
	id, _, err = again.Commit(context.Background(), func(context.Context, *llmSvc.GenerationResult) (string, error) {
		t.Fatal("committed twice")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "node-slide-Show example", id)
}

func TestJob_LateSubscriberAfterCompletion(t *testing.T) {
	g := newFakeGenerator()
	c := newCoordinator(t, g, 4)
	job := c.Speculate("A", history, []string{"Show example"})[0]
	close(g.release)
	<-job.Done()

	events, latest, unsubscribe := job.Subscribe()
	defer unsubscribe()

	// The buffered stream still knows the last partial
	require.NotNil(t, latest)
	assert.Equal(t, "after-Show example", latest.ID)
	for range events {
		t.Fatal("finished job delivered an event")
	}
}
