package tts

import (
	"context"
	"sort"
	"sync"
)

// DefaultWorkers is the stock worker pool size. Synthesis is network
// bound, so a small pool keeps the engine busy without flooding it.
const DefaultWorkers = 4

// Dispatcher fans chunks out to a fixed pool of workers and returns
// results in document order. One chunk failing never discards the
// audio of the chunks that succeeded.
type Dispatcher struct {
	synth   Synthesizer
	workers int
}

// NewDispatcher builds a dispatcher over synth. workers <= 0 selects
// DefaultWorkers.
func NewDispatcher(synth Synthesizer, workers int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{synth: synth, workers: workers}
}

// Dispatch synthesizes every chunk on the worker pool and returns one
// Result per chunk, sorted by chunk index no matter the completion
// order. progress may be nil. When some chunks fail, the returned
// error is a *DispatchError listing them; results for the rest are
// still present and usable. Cancelling ctx stops workers from starting
// new chunks, and chunks never attempted resolve with the context's
// error.
func (d *Dispatcher) Dispatch(ctx context.Context, chunks []Chunk, voice string, speed float64, progress ProgressFunc) ([]Result, error) {
	return d.run(ctx, chunks, voice, speed, d.workers, progress)
}

// DispatchSerial synthesizes chunks one at a time in order, for
// engines that cannot take parallel load.
func (d *Dispatcher) DispatchSerial(ctx context.Context, chunks []Chunk, voice string, speed float64, progress ProgressFunc) ([]Result, error) {
	return d.run(ctx, chunks, voice, speed, 1, progress)
}

func (d *Dispatcher) run(ctx context.Context, chunks []Chunk, voice string, speed float64, workers int, progress ProgressFunc) ([]Result, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if workers > len(chunks) {
		workers = len(chunks)
	}

	results := make([]Result, len(chunks))

	// Queue all work up front so every chunk gets an outcome even when
	// ctx is cancelled mid-batch.
	work := make(chan int, len(chunks))
	for i := range chunks {
		work <- i
	}
	close(work)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		completed int
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				chunk := chunks[i]
				res := Result{Index: chunk.Index}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Audio, res.Err = d.synth.Synthesize(ctx, chunk.Text, voice, speed)
				}
				results[i] = res

				// The counter and the callback share the mutex so
				// observers always see completed grow one at a time.
				mu.Lock()
				completed++
				if progress != nil {
					progress(completed, len(chunks), chunk.Index, res.Err)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	var failures []ChunkFailure
	for _, r := range results {
		if r.Err != nil {
			failures = append(failures, ChunkFailure{Index: r.Index, Err: r.Err})
		}
	}
	if len(failures) > 0 {
		return results, &DispatchError{Failures: failures, Total: len(chunks)}
	}
	return results, nil
}
