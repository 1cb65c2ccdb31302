package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/paketo-buildpacks/packit/v2/scribe"
	"golang.org/x/sync/errgroup"
)

type parseResult struct {
	records []PackageRecord
	err     error
}

// A dispatcher runs candidates through their parsers on a fixed number of
// workers fed from a bounded queue.
type dispatcher struct {
	registry *Registry
	workers  int
	timeout  time.Duration
}

// newDispatcher returns a dispatcher with workerCount parser workers, at
// least one. Each parse is abandoned and reported as a timeout after the
// given duration, DefaultTimeout when it is not positive.
func newDispatcher(registry *Registry, workerCount int, timeout time.Duration) dispatcher {
	if workerCount < 1 {
		workerCount = 1
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return dispatcher{
		registry: registry,
		workers:  workerCount,
		timeout:  timeout,
	}
}

// run consumes candidates produced by the locate function until it returns,
// then waits for every queued candidate to be accounted for in the
// collector.
func (d dispatcher) run(ctx context.Context, c *collector, locate func(enqueue func(Candidate) error) error) {
	queue := make(chan Candidate, 2*d.workers)

	var group errgroup.Group
	group.Go(func() error {
		defer close(queue)

		err := locate(func(candidate Candidate) error {
			c.located(candidate)

			select {
			case queue <- candidate:
				return nil
			case <-ctx.Done():
				c.abandoned(candidate)
				return ctx.Err()
			}
		})
		if err != nil && ctx.Err() == nil {
			c.walkFailed(err)
		}

		return nil
	})

	for i := 0; i < d.workers; i++ {
		group.Go(func() error {
			for candidate := range queue {
				if ctx.Err() != nil {
					c.abandoned(candidate)
					continue
				}

				d.process(ctx, c, candidate)
			}

			return nil
		})
	}

	// workers report failures through the collector
	_ = group.Wait()
}

func (d dispatcher) process(ctx context.Context, c *collector, candidate Candidate) {
	parser, ok := d.registry.Parser(candidate.ParserID)
	if !ok {
		c.failed(candidate, parseFailure(candidate, fmt.Errorf("no parser registered as %q", candidate.ParserID)))
		return
	}

	parseCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	results := make(chan parseResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- parseResult{err: fmt.Errorf("parser panicked: %v", r)}
			}
		}()

		records, err := parser.Parse(parseCtx, candidate)
		results <- parseResult{records: records, err: err}
	}()

	var result parseResult
	select {
	case result = <-results:
	case <-parseCtx.Done():
		// the parser goroutine is left to finish on its own; its result
		// lands in the buffered channel and is dropped
		result = parseResult{err: parseCtx.Err()}
	}

	switch {
	case ctx.Err() != nil:
		c.abandoned(candidate)
	case result.err != nil && errors.Is(result.err, context.DeadlineExceeded) && parseCtx.Err() != nil:
		c.failed(candidate, timeoutFailure(candidate, result.err))
	case result.err != nil:
		c.failed(candidate, parseFailure(candidate, result.err))
	default:
		c.parsed(candidate, result.records)
	}
}

// A collector accumulates the output of concurrent workers. Every method is
// safe for concurrent use.
type collector struct {
	mutex   sync.Mutex
	logger  scribe.Logger
	records []PackageRecord
	errors  []ScanError
	stats   Stats
}

func newCollector(logger scribe.Logger) *collector {
	return &collector{logger: logger}
}

func (c *collector) located(candidate Candidate) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stats.Candidates++
	c.logger.Subprocess("Found %s (%s)", candidate.RelPath, candidate.ParserID)
}

func (c *collector) parsed(candidate Candidate, records []PackageRecord) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stats.Parsed++
	c.records = append(c.records, records...)
	c.logger.Action("%s: %d package(s)", candidate.RelPath, len(records))
}

func (c *collector) failed(candidate Candidate, failure ScanError) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stats.Failed++
	c.errors = append(c.errors, failure)
	c.logger.Action("%s: %s error: %s", candidate.RelPath, failure.Kind, failure.Reason)
}

func (c *collector) abandoned(Candidate) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.stats.Abandoned++
}

func (c *collector) walkFailed(err error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = append(c.errors, accessError("/", err))
}

func (c *collector) accessFailures(failures []ScanError) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.errors = append(c.errors, failures...)
}
