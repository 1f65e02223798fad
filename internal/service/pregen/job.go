package pregen

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	mstream "github.com/haowjy/meridian-stream-go"

	"slidegraph/internal/domain"
	"slidegraph/internal/domain/models/slide"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// ErrNoSlide is returned by Wait when the generation ended without a slide
var ErrNoSlide = domain.ErrNoSlide

const subscriberBuffer = 64

// CommitFunc persists a claimed result and returns the resulting node id
type CommitFunc func(ctx context.Context, result *llmSvc.GenerationResult) (string, error)

// runFunc produces the job's slide, reporting progress through emit
type runFunc func(ctx context.Context, emit llmSvc.EmitFunc) (*llmSvc.GenerationResult, error)

// Job is one speculative generation for a branch prompt. It behaves like a
// future: Wait blocks for the result, Subscribe follows its progress.
//
// The generation runs as a broadcast stream. Events are buffered on the
// stream, so a subscriber arriving late still sees the latest partial.
type Job struct {
	id     string
	nodeID string
	prompt string
	stream *mstream.Stream

	done       chan struct{}
	finishOnce sync.Once

	claimed atomic.Bool

	mu     sync.Mutex
	result *llmSvc.GenerationResult
	err    error

	commitOnce sync.Once
	commitID   string
	commitErr  error
}

func newJob(nodeID, prompt string, run runFunc) *Job {
	j := &Job{
		id:     uuid.New().String(),
		nodeID: nodeID,
		prompt: prompt,
		done:   make(chan struct{}),
	}
	j.stream = mstream.NewStream(j.id, j.work(run),
		mstream.WithBufferSize(subscriberBuffer),
		mstream.WithOnComplete(func(string) { j.finish(nil) }),
		mstream.WithOnError(func(_ string, err error) { j.finish(err) }),
	)
	return j
}

// start launches the generation. onExit runs once the stream has shut down.
func (j *Job) start(onExit func()) {
	// Registered before Start so the stream is guaranteed to close it
	exited := j.stream.AddClient(j.id + "/exit")
	j.stream.Start()

	go func() {
		defer onExit()
		for range exited {
		}
		// A cancel landing after the work returned ends the stream with no hook
		j.finish(context.Canceled)
	}()
}

// work adapts run to the stream: every emitted event is tagged with the
// prompt and broadcast, and the outcome is always reported through a hook.
func (j *Job) work(run runFunc) mstream.WorkFunc {
	return func(ctx context.Context, send func(mstream.Event)) error {
		emit := func(emitCtx context.Context, ev slide.Event) error {
			if err := emitCtx.Err(); err != nil {
				return err
			}
			ev.Prompt = j.prompt
			data, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("encode %s event: %w", ev.Type, err)
			}
			send(mstream.NewEvent(data).WithType(ev.Type))
			return nil
		}

		result, err := run(ctx, emit)
		if err == nil {
			err = ctx.Err()
		}
		if err == nil && result == nil {
			err = ErrNoSlide
		}
		if err != nil {
			return err
		}

		j.mu.Lock()
		j.result = result
		j.mu.Unlock()
		return nil
	}
}

// finish stores the outcome and releases waiters. Only the first call counts.
func (j *Job) finish(err error) {
	j.finishOnce.Do(func() {
		j.mu.Lock()
		j.err = err
		j.mu.Unlock()
		close(j.done)
	})
}

// ID returns the job id
func (j *Job) ID() string { return j.id }

// Prompt returns the branch prompt the job generates for
func (j *Job) Prompt() string { return j.prompt }

// NodeID returns the node the job was launched from
func (j *Job) NodeID() string { return j.nodeID }

// Done is closed once the job has finished
func (j *Job) Done() <-chan struct{} { return j.done }

// Claimed reports whether a waiter has claimed the job
func (j *Job) Claimed() bool { return j.claimed.Load() }

// Status returns the stream state: pending, running, complete, error or cancelled
func (j *Job) Status() string { return string(j.stream.Status()) }

// Complete reports whether the job finished with a slide
func (j *Job) Complete() bool {
	select {
	case <-j.done:
	default:
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err == nil && j.result != nil
}

// ResultingNodeID returns the node created from the job, if committed
func (j *Job) ResultingNodeID() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.commitID
}

// Cancel aborts the generation. Safe to call multiple times.
func (j *Job) Cancel() {
	j.stream.Cancel()
}

// Subscribe follows the job's events from now on. It also returns the latest
// partial slide seen so far, so a late subscriber can render immediately.
// The channel is closed when the job finishes or unsubscribe is called. A
// subscriber that falls behind misses events.
func (j *Job) Subscribe() (<-chan slide.Event, *slide.Slide, func()) {
	clientID := uuid.New().String()
	raw := j.stream.AddClient(clientID)
	unsubscribe := func() { j.stream.RemoveClient(clientID) }

	// The stream only closes clients registered before it ended
	switch mstream.Status(j.Status()) {
	case mstream.StatusComplete, mstream.StatusError, mstream.StatusCancelled:
		unsubscribe()
	}

	latest := j.latestPartial()

	out := make(chan slide.Event, subscriberBuffer)
	go func() {
		defer close(out)
		for e := range raw {
			var ev slide.Event
			if err := json.Unmarshal(e.Data, &ev); err != nil {
				continue
			}
			select {
			case out <- ev:
			default:
			}
		}
	}()
	return out, latest, unsubscribe
}

// latestPartial decodes the most recent slide_partial in the stream buffer
func (j *Job) latestPartial() *slide.Slide {
	buffered := j.stream.SnapshotBuffer()
	for i := len(buffered) - 1; i >= 0; i-- {
		if buffered[i].Type != slide.EventSlidePartial {
			continue
		}
		var ev slide.Event
		if err := json.Unmarshal(buffered[i].Data, &ev); err == nil && ev.Slide != nil {
			return ev.Slide
		}
	}
	return nil
}

// Wait blocks until the job finishes or ctx is done
func (j *Job) Wait(ctx context.Context) (*llmSvc.GenerationResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-j.done:
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return nil, j.err
	}
	return j.result, nil
}

// Commit waits for the result and persists it through fn exactly once.
// Every caller gets the node id of that single commit. fn runs detached from
// the cancellation of whichever caller got there first.
func (j *Job) Commit(ctx context.Context, fn CommitFunc) (string, *llmSvc.GenerationResult, error) {
	result, err := j.Wait(ctx)
	if err != nil {
		return "", nil, err
	}

	j.commitOnce.Do(func() {
		id, err := fn(context.WithoutCancel(ctx), result)
		j.mu.Lock()
		j.commitID, j.commitErr = id, err
		j.mu.Unlock()
	})

	j.mu.Lock()
	defer j.mu.Unlock()
	return j.commitID, result, j.commitErr
}
