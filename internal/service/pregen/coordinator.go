package pregen

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"slidegraph/internal/domain/models/llm"
	llmSvc "slidegraph/internal/domain/services/llm"
)

// EntryStatus is the externally visible state of one speculative job
type EntryStatus struct {
	Prompt          string `json:"prompt"`
	Status          string `json:"status"`
	Complete        bool   `json:"complete"`
	Claimed         bool   `json:"claimed"`
	ResultingNodeID string `json:"resultingNodeId,omitempty"`
}

// Coordinator runs speculative generations for the branches of the current
// node. The cache is versioned by that node: launching for another node, or
// invalidating, cancels every job of the previous one.
type Coordinator struct {
	generator llmSvc.Generator
	sem       *semaphore.Weighted
	logger    *slog.Logger

	mu      sync.Mutex
	current string
	entries map[string]*Job
	order   []string

	wg sync.WaitGroup
}

// NewCoordinator creates a coordinator running at most maxConcurrent
// generations at once; further jobs wait for a slot.
func NewCoordinator(generator llmSvc.Generator, maxConcurrent int, logger *slog.Logger) *Coordinator {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Coordinator{
		generator: generator,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		logger:    logger,
		entries:   make(map[string]*Job),
	}
}

// Speculate makes nodeID current and launches one job per prompt. If nodeID
// is already current, jobs for prompts already cached are kept; otherwise
// the previous node's jobs are cancelled first.
func (c *Coordinator) Speculate(nodeID string, history llm.History, prompts []string) []*Job {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nodeID {
		c.invalidateLocked()
		c.current = nodeID
	}

	launched := make([]*Job, 0, len(prompts))
	for _, prompt := range prompts {
		if prompt == "" {
			continue
		}
		if _, ok := c.entries[prompt]; ok {
			continue
		}
		job := c.launchLocked(nodeID, prompt, history.Clone())
		launched = append(launched, job)
	}

	if len(launched) > 0 {
		c.logger.Info("speculation started",
			"node_id", nodeID,
			"jobs", len(launched),
		)
	}
	return launched
}

func (c *Coordinator) launchLocked(nodeID, prompt string, history llm.History) *Job {
	job := newJob(nodeID, prompt, func(ctx context.Context, emit llmSvc.EmitFunc) (*llmSvc.GenerationResult, error) {
		return c.run(ctx, nodeID, prompt, history, emit)
	})
	c.entries[prompt] = job
	c.order = append(c.order, prompt)

	c.wg.Add(1)
	job.start(c.wg.Done)
	return job
}

func (c *Coordinator) run(ctx context.Context, nodeID, prompt string, history llm.History, emit llmSvc.EmitFunc) (*llmSvc.GenerationResult, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	result, err := c.generator.Generate(ctx, prompt, history, emit)
	switch {
	case errors.Is(err, context.Canceled):
		c.logger.Debug("speculative job cancelled", "node_id", nodeID, "prompt", prompt)
	case err != nil:
		c.logger.Warn("speculative job failed", "node_id", nodeID, "prompt", prompt, "error", err)
	case result == nil:
		c.logger.Warn("speculative job produced no slide", "node_id", nodeID, "prompt", prompt)
	default:
		c.logger.Debug("speculative job complete", "node_id", nodeID, "prompt", prompt)
	}
	return result, err
}

// Claim commits the cached job for prompt to a navigation from nodeID.
//
// It returns nil if nodeID is not current or no job exists for prompt; the
// caller then generates afresh. first is true for exactly one caller; later
// claimers share the same job and its single commit.
func (c *Coordinator) Claim(nodeID, prompt string) (job *Job, first bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nodeID {
		return nil, false
	}
	job, ok := c.entries[prompt]
	if !ok {
		return nil, false
	}
	return job, job.claimed.CompareAndSwap(false, true)
}

// Invalidate cancels every job and clears the cache. Stale completions are
// never delivered afterwards because their entries are gone.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked()
}

func (c *Coordinator) invalidateLocked() {
	if len(c.entries) > 0 {
		c.logger.Info("speculation invalidated",
			"node_id", c.current,
			"jobs", len(c.entries),
		)
	}
	for _, job := range c.entries {
		job.Cancel()
	}
	c.entries = make(map[string]*Job)
	c.order = nil
	c.current = ""
}

// Current returns the node the cache belongs to, or "" after invalidation
func (c *Coordinator) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Snapshot returns the entries for nodeID in launch order. It is empty if
// nodeID is not current.
func (c *Coordinator) Snapshot(nodeID string) []EntryStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []EntryStatus{}
	if c.current != nodeID {
		return out
	}
	for _, prompt := range c.order {
		job := c.entries[prompt]
		out = append(out, EntryStatus{
			Prompt:          prompt,
			Status:          job.Status(),
			Complete:        job.Complete(),
			Claimed:         job.Claimed(),
			ResultingNodeID: job.ResultingNodeID(),
		})
	}
	return out
}

// Close cancels all jobs and waits for their streams to shut down
func (c *Coordinator) Close() {
	c.Invalidate()
	c.wg.Wait()
}
