// Package ratelimit implements request pacing policies that keep
// batched upstream calls under the marketplace's implicit rate limit.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// SleepFunc waits for d or until the context is cancelled.
// Tests substitute a recorder to make pacing deterministic.
type SleepFunc func(ctx context.Context, d time.Duration)

// Wait is the default SleepFunc.
func Wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// Policy schedules n independent upstream calls. Implementations only
// control timing and concurrency; they must invoke run(i) exactly once
// for every i in [0, n) and never reorder or drop work.
type Policy interface {
	Pace(ctx context.Context, n int, run func(i int))
}

// ChunkedParallel partitions work into fixed-size chunks, runs each
// chunk's calls concurrently, and waits Delay between chunks. No delay
// follows the last chunk. This is the default policy.
type ChunkedParallel struct {
	ChunkSize int
	Delay     time.Duration

	// Sleep overrides the inter-chunk wait (for testing).
	Sleep SleepFunc
}

// DefaultChunkedParallel returns the default pacing policy: chunks of
// five with a one second pause between chunks.
func DefaultChunkedParallel() *ChunkedParallel {
	return &ChunkedParallel{
		ChunkSize: 5,
		Delay:     1 * time.Second,
	}
}

// Pace implements Policy.
func (p *ChunkedParallel) Pace(ctx context.Context, n int, run func(i int)) {
	chunkSize := p.ChunkSize
	if chunkSize <= 0 {
		chunkSize = 5
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Wait
	}

	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				run(i)
			}(i)
		}
		wg.Wait()

		if end < n && p.Delay > 0 {
			sleep(ctx, p.Delay)
		}
	}
}

// SequentialPaced runs one call at a time with a fixed delay before
// each call. Slower than ChunkedParallel but gentler on the upstream.
type SequentialPaced struct {
	Delay time.Duration

	// Sleep overrides the per-call wait (for testing).
	Sleep SleepFunc
}

// Pace implements Policy.
func (p *SequentialPaced) Pace(ctx context.Context, n int, run func(i int)) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = Wait
	}

	for i := 0; i < n; i++ {
		if p.Delay > 0 {
			sleep(ctx, p.Delay)
		}
		run(i)
	}
}
