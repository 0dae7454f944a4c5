package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/quartzerp/mrp/pkg/domain/entities"
	"github.com/quartzerp/mrp/pkg/planning/shared"
)

// runTier executes every chunk of one low-level-code tier on a bounded
// worker pool and waits for all of them: the barrier that keeps dependent
// demand propagation sound.
func (o *Orchestrator) runTier(ctx context.Context, run *entities.MrpRun, chunks []chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	work := make(chan chunk)
	errs := make(chan error, len(chunks))
	var wg sync.WaitGroup

	workers := o.opts.Workers
	if workers > len(chunks) {
		workers = len(chunks)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for c := range work {
				if err := o.runChunkWithRetry(ctx, run, c); err != nil {
					errs <- err
				}
			}
		}()
	}

	for _, c := range chunks {
		work <- c
	}
	close(work)
	wg.Wait()
	close(errs)

	// Cancellation wins over chunk errors so a cancelled run never reports
	// failed.
	var firstErr error
	for err := range errs {
		if errors.Is(err, errRunCancelled) {
			return errRunCancelled
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runChunkWithRetry attempts a chunk up to 1+ChunkRetries times with
// doubling backoff. Chunks are idempotent (recommendations upsert by run
// and product), so a retried chunk cannot double-write.
func (o *Orchestrator) runChunkWithRetry(ctx context.Context, run *entities.MrpRun, c chunk) error {
	attempts := o.opts.ChunkRetries + 1
	backoff := o.opts.RetryBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := o.runChunk(ctx, run, c)
		if err == nil {
			return nil
		}
		if errors.Is(err, errRunCancelled) {
			return err
		}
		lastErr = err
		log.Printf("orchestrator: chunk %d tier %d attempt %d/%d failed: %v", c.index, c.tier, attempt, attempts, err)

		if attempt < attempts && backoff > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}

	return &shared.ChunkError{Tier: c.tier, Chunk: c.index, Attempts: attempts, Err: lastErr}
}

// runChunk nets each product of a chunk in order, observing the chunk
// timeout and cooperative cancellation at chunk start and between products.
// Counter deltas accumulate locally and commit in a single increment after
// the last product, so a retried chunk never double-counts.
func (o *Orchestrator) runChunk(ctx context.Context, run *entities.MrpRun, c chunk) error {
	if o.opts.ChunkTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.ChunkTimeout)
		defer cancel()
	}

	if err := o.checkCancelled(ctx, run); err != nil {
		return err
	}

	var processed, generated, warned int64
	for _, product := range c.products {
		result, err := o.engine.PlanProduct(ctx, run, product)
		if err != nil {
			return fmt.Errorf("failed to plan product %s: %w", product.ID, err)
		}

		processed++
		if result.Recommendation != nil {
			generated++
		}
		for _, warning := range result.Warnings {
			log.Printf("orchestrator: run %s: %s", run.RunNumber, warning)
		}
		warned += int64(len(result.Warnings))

		if err := o.checkCancelled(ctx, run); err != nil {
			return err
		}
	}

	if err := o.runRepo.AddCounters(run.ID, processed, generated, warned); err != nil {
		return fmt.Errorf("failed to update run counters: %w", err)
	}

	return nil
}

// checkCancelled observes cancellation through both the context and the
// persisted run status, the only channel shared with CancelRun callers.
func (o *Orchestrator) checkCancelled(ctx context.Context, run *entities.MrpRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	current, err := o.runRepo.GetRun(run.ID)
	if err != nil {
		return fmt.Errorf("failed to check run status: %w", err)
	}
	if current.Status == entities.RunCancelled {
		return errRunCancelled
	}
	return nil
}
