// Package remote simulates queries against remote resources for the fanout tool.
// Each query sleeps for a random latency and fails with a configured probability.
package remote

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ygrebnov/errorc"

	"github.com/ygrebnov/batches"
)

const Namespace = "remote"

var (
	ErrUnavailable = errors.New(Namespace + ": resource unavailable")
	ErrTimeout     = errors.New(Namespace + ": query timed out")
)

// Query addresses one resource on one host.
type Query struct {
	Host     string
	Resource string
}

func (q Query) String() string { return q.Host + "/" + q.Resource }

// Result is a successful query answer.
type Result struct {
	Query   Query
	Latency time.Duration
	Payload string
}

// Settings shape the simulated latency and failure rate.
type Settings struct {
	MinLatency  time.Duration
	MaxLatency  time.Duration
	FailureRate float64
	// Timeout bounds a single query; zero means no bound.
	Timeout time.Duration
}

// Simulator builds query tasks. Latency and failure are drawn when the task is built,
// so a seeded Simulator produces the same plan on every run.
type Simulator struct {
	settings Settings

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulator returns a Simulator drawing from a PCG source seeded with seed.
func NewSimulator(s Settings, seed uint64) *Simulator {
	return &Simulator{settings: s, rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type plan struct {
	latency time.Duration
	fail    bool
}

func (s *Simulator) draw() plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := plan{latency: s.settings.MinLatency}
	if spread := s.settings.MaxLatency - s.settings.MinLatency; spread > 0 {
		p.latency += time.Duration(s.rnd.Int64N(int64(spread)))
	}
	p.fail = s.rnd.Float64() < s.settings.FailureRate
	return p
}

// Task returns a task answering q after the drawn latency, or failing with ErrUnavailable.
// A done ctx or an elapsed Timeout ends the wait early.
func (s *Simulator) Task(q Query) batches.Task[Result] {
	p := s.draw()
	timeout := s.settings.Timeout
	return func(parent context.Context) (Result, error) {
		ctx := parent
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(parent, timeout)
			defer cancel()
		}

		timer := time.NewTimer(p.latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			if parent.Err() == nil {
				return Result{}, errorc.With(ErrTimeout, errorc.String("query", q.String()))
			}
			return Result{}, parent.Err()
		}

		if p.fail {
			return Result{}, errorc.With(ErrUnavailable,
				errorc.String("query", q.String()),
				errorc.String("latency", p.latency.String()),
			)
		}
		return Result{
			Query:   q,
			Latency: p.latency,
			Payload: fmt.Sprintf("%s=ok", q),
		}, nil
	}
}

// Queries returns n queries spread over hosts named <prefix>-<i>.
func Queries(prefix string, hosts, n int) []Query {
	if hosts < 1 {
		hosts = 1
	}
	qs := make([]Query, 0, n)
	for i := 0; i < n; i++ {
		qs = append(qs, Query{
			Host:     fmt.Sprintf("%s-%d", prefix, i%hosts+1),
			Resource: fmt.Sprintf("resource-%03d", i),
		})
	}
	return qs
}
