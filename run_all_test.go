package batches

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunAll_CollectsEveryOutcome(t *testing.T) {
	p := newPool(t, 3, 0)
	boom := errors.New("boom")

	tasks := make([]Task[int], 0, 6)
	for i := 0; i < 6; i++ {
		if i%3 == 0 {
			tasks = append(tasks, TaskError[int](func(context.Context) error { return boom }))
			continue
		}
		tasks = append(tasks, sleepValue(time.Millisecond, i*10))
	}

	outcomes, err := RunAll(context.Background(), p, tasks)
	require.ErrorIs(t, err, boom)
	require.Len(t, outcomes, 6)
	require.Equal(t, seq(6), indices(outcomes))

	values := Values(outcomes)
	sort.Ints(values)
	require.Equal(t, []int{10, 20, 40, 50}, values)
}

func TestRunAll_NoTasks(t *testing.T) {
	outcomes, err := RunAll[int](context.Background(), newPool(t, 1, 0), nil)
	require.NoError(t, err)
	require.Empty(t, outcomes)
}

func TestRunAll_ContextCancelled(t *testing.T) {
	p := newPool(t, 1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	tasks := []Task[int]{
		TaskValue(func(context.Context) int { time.Sleep(50 * time.Millisecond); cancel(); return 1 }),
		sleepValue(0, 2),
		sleepValue(0, 3),
	}
	outcomes, err := RunAll(ctx, p, tasks)
	require.ErrorIs(t, err, context.Canceled)

	for _, o := range outcomes {
		if o.Index == 0 {
			require.NoError(t, o.Err)
			continue
		}
		require.ErrorIs(t, o.Err, ErrTaskCancelled, "tasks picked up after cancel must not run")
	}
}

func TestRunAll_PoolClosed(t *testing.T) {
	p := newPool(t, 1, 0)
	require.NoError(t, p.Shutdown(context.Background()))

	outcomes, err := RunAll(context.Background(), p, []Task[int]{sleepValue(0, 1)})
	require.Error(t, err)
	require.Empty(t, outcomes)
}

func TestRunAll_InvalidInput(t *testing.T) {
	_, err := RunAll[int](context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrNilExecutor)

	_, err = RunAll[int](context.Background(), newPool(t, 1, 0), nil, WithName(""))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestMap(t *testing.T) {
	p := newPool(t, 4, 0)
	items := []string{"1", "2", "x", "4"}

	values, err := Map(context.Background(), p, items, func(_ context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	}, WithErrorTagging())
	require.Error(t, err)

	idx, ok := ExtractTaskIndex(err)
	require.True(t, ok)
	require.Equal(t, 2, idx)

	sort.Ints(values)
	require.Equal(t, []int{1, 2, 4}, values)
}

func TestMap_Empty(t *testing.T) {
	values, err := Map(context.Background(), newPool(t, 1, 0), []int(nil), func(_ context.Context, v int) (int, error) {
		return v, nil
	})
	require.NoError(t, err)
	require.Nil(t, values)
}

func collect[R any](t *testing.T, out <-chan Outcome[R]) []Outcome[R] {
	t.Helper()
	var outcomes []Outcome[R]
	timeout := time.After(5 * time.Second)
	for {
		select {
		case o, ok := <-out:
			if !ok {
				return outcomes
			}
			outcomes = append(outcomes, o)
		case <-timeout:
			t.Fatal("stream was not closed")
			return nil
		}
	}
}

func TestRunStream_DeliversEveryOutcome(t *testing.T) {
	const n = 20
	in := make(chan Task[int])
	out, err := RunStream(context.Background(), newPool(t, 3, 0), in)
	require.NoError(t, err)

	go func() {
		defer close(in)
		for i := 0; i < n; i++ {
			in <- sleepValue(time.Millisecond, i)
		}
	}()

	outcomes := collect(t, out)
	require.Len(t, outcomes, n)
	require.Equal(t, seq(n), indices(outcomes))
}

func TestRunStream_ClosedIntakeWithNoTasks(t *testing.T) {
	in := make(chan Task[int])
	close(in)
	out, err := RunStream(context.Background(), newPool(t, 1, 0), in)
	require.NoError(t, err)
	require.Empty(t, collect(t, out))
}

func TestRunStream_ContextCancelClosesOutput(t *testing.T) {
	p := newPool(t, 1, 0)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan Task[int], 1)
	in <- TaskValue(func(context.Context) int { <-release; return 1 })

	out, err := RunStream(ctx, p, in)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.Empty(t, collect(t, out))
}

func TestRunStream_RefusedTaskStopsIntake(t *testing.T) {
	p := newPool(t, 1, 0)
	require.NoError(t, p.Shutdown(context.Background()))

	core, logs := observer.New(zapcore.WarnLevel)
	in := make(chan Task[int], 2)
	in <- sleepValue(0, 1)
	in <- sleepValue(0, 2)
	close(in)

	out, err := RunStream(context.Background(), p, in, WithLogger(zap.New(core)))
	require.NoError(t, err)
	require.Empty(t, collect(t, out))
	require.Equal(t, 1, logs.FilterMessage("stream intake stopped").Len())
}

func TestRunStream_InvalidInput(t *testing.T) {
	_, err := RunStream[int](context.Background(), nil, make(chan Task[int]))
	require.ErrorIs(t, err, ErrNilExecutor)
}

func TestForEach(t *testing.T) {
	p := newPool(t, 3, 0)
	boom := errors.New("boom")

	var seen atomic.Int32
	err := ForEach(context.Background(), p, []int{1, 2, 3, 4}, func(_ context.Context, v int) error {
		seen.Add(1)
		if v == 3 {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 4, seen.Load())

	require.NoError(t, ForEach(context.Background(), p, []int(nil), func(context.Context, int) error { return boom }))
}

func TestMapStream(t *testing.T) {
	in := make(chan string)
	out, err := MapStream(context.Background(), newPool(t, 2, 0), in, func(_ context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	})
	require.NoError(t, err)

	go func() {
		defer close(in)
		for _, s := range []string{"1", "2", "oops", "4"} {
			in <- s
		}
	}()

	outcomes := collect(t, out)
	require.Len(t, outcomes, 4)
	require.Equal(t, seq(4), indices(outcomes))

	values := Values(outcomes)
	sort.Ints(values)
	require.Equal(t, []int{1, 2, 4}, values)
}
