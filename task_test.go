package batches

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskAdapters(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		task    Task[int]
		want    int
		wantErr error
	}{
		{
			name: "TaskFunc success",
			task: TaskFunc(func(context.Context) (int, error) { return 7, nil }),
			want: 7,
		},
		{
			name:    "TaskFunc error keeps value",
			task:    TaskFunc(func(context.Context) (int, error) { return 3, boom }),
			want:    3,
			wantErr: boom,
		},
		{
			name: "TaskValue",
			task: TaskValue(func(context.Context) int { return 5 }),
			want: 5,
		},
		{
			name: "TaskError nil",
			task: TaskError[int](func(context.Context) error { return nil }),
		},
		{
			name:    "TaskError returns zero value",
			task:    TaskError[int](func(context.Context) error { return boom }),
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.task.Run(context.Background())
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTaskRun_CancelledContextSkipsTask(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	_, err := TaskValue(func(context.Context) int { ran = true; return 1 }).Run(ctx)
	require.ErrorIs(t, err, ErrTaskCancelled)
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, ran)
}

func TestTaskRun_RecoversPanic(t *testing.T) {
	got, err := TaskFunc(func(context.Context) (string, error) { panic("kaboom") }).Run(context.Background())
	require.ErrorIs(t, err, ErrTaskPanicked)
	require.Contains(t, err.Error(), "kaboom")
	require.Empty(t, got)
}

func TestTaskRun_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	got, err := TaskValue(func(ctx context.Context) any { return ctx.Value(key{}) }).Run(ctx)
	require.NoError(t, err)
	require.Equal(t, "v", got)
}
