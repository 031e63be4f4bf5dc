// Package workers runs ingestion jobs on a bounded goroutine pool.
package workers

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/grabdocs/internal/logger"
)

// ErrPoolClosed is returned by Submit after Release.
var ErrPoolClosed = errors.New("workers: pool closed")

const expiry = 10 * time.Second

// Pool bounds concurrent jobs and lets callers wait for all of them.
type Pool struct {
	name   string
	pool   *ants.Pool
	wg     sync.WaitGroup
	closed atomic.Bool
	log    logger.Logger

	submitted atomic.Int64
	panicked  atomic.Int64
}

// Stats counts jobs seen by a pool.
type Stats struct {
	Submitted int64
	Panicked  int64
	Running   int
}

// New creates a pool running at most size jobs at once.
// Submit blocks while the pool is full.
func New(name string, size int) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	p := &Pool{name: name, log: logger.With(name)}

	pool, err := ants.NewPool(size,
		ants.WithExpiryDuration(expiry),
		ants.WithNonblocking(false),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s pool: %w", name, err)
	}
	p.pool = pool
	p.log.Debug("pool created, capacity %d", size)
	return p, nil
}

// Submit queues job. It returns once a worker has accepted it.
func (p *Pool) Submit(job func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.finish()
		job()
	})
	if err != nil {
		p.wg.Done()
		if errors.Is(err, ants.ErrPoolClosed) {
			return ErrPoolClosed
		}
		return fmt.Errorf("submit to %s pool: %w", p.name, err)
	}
	p.submitted.Add(1)
	return nil
}

// finish recovers a panicking job so the worker and Wait survive it.
func (p *Pool) finish() {
	if r := recover(); r != nil {
		p.panicked.Add(1)
		p.log.Error("job panicked: %v", r)
	}
	p.wg.Done()
}

// Wait blocks until every submitted job has returned.
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Cap returns the pool capacity.
func (p *Pool) Cap() int { return p.pool.Cap() }

// Stats returns a snapshot of the counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Submitted: p.submitted.Load(),
		Panicked:  p.panicked.Load(),
		Running:   p.pool.Running(),
	}
}

// Release waits for running jobs and frees the workers.
func (p *Pool) Release() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.wg.Wait()
	p.pool.Release()
}
