package retry

import (
	"context"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/abalone/pkg/errors"
	"github.com/YuminosukeSato/abalone/pkg/log"
)

func fastPolicy() Policy {
	return DefaultPolicy().WithDelay(time.Millisecond)
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 60*time.Second, p.Delay)
}

func TestExecute_RetriesIOErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), "read-data", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.NewIOError("read", "data/abalone.csv", fs.ErrNotExist)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := fastPolicy().Execute(context.Background(), "read-data", func(context.Context) error {
		calls++
		return errors.NewIOError("read", "data/abalone.csv", fs.ErrNotExist)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	var ioErr *errors.IOError
	assert.True(t, errors.As(err, &ioErr))
	assert.Contains(t, err.Error(), "all 3 attempts failed")
}

func TestExecute_FailsFastOnDataErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "schema error", err: errors.NewSchemaError("data.csv", "Sex", 4, "unknown sex symbol")},
		{name: "value error", err: errors.NewValueError("TrainTestSplit", "need at least 2 rows")},
		{name: "schema mismatch", err: errors.NewSchemaMismatchError([]string{"a"}, []string{"b"}, "x")},
		{name: "corrupt artifact", err: errors.NewCorruptArtifactError("m", "bad magic header", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fastPolicy().Execute(context.Background(), "transform-data", func(context.Context) error {
				calls++
				return tt.err
			})
			require.Error(t, err)
			assert.Equal(t, 1, calls)
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestExecute_CancelDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	start := time.Now()
	err := DefaultPolicy().Execute(ctx, "val-split", func(context.Context) error {
		calls++
		cancel()
		return errors.NewIOError("read", "x", fs.ErrPermission)
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecute_CustomPredicate(t *testing.T) {
	calls := 0
	p := Policy{MaxAttempts: 2, Delay: time.Millisecond, ShouldRetry: func(error) bool { return true }}
	err := p.Execute(context.Background(), "custom", func(context.Context) error {
		calls++
		return errors.NewValueError("op", "always")
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
}

func TestStep(t *testing.T) {
	testLogger, _ := log.NewTestLogger(log.LevelDebug)
	prev := log.GetLogger()
	log.SetLogger(testLogger)
	t.Cleanup(func() { log.SetLogger(prev) })

	calls := 0
	step := Step("read-data", fastPolicy(), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.NewIOError("read", "data/abalone.csv", fs.ErrNotExist)
		}
		return 42, nil
	})

	got, err := step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.True(t, testLogger.ContainsMessage("Step failed, retrying"))
	assert.True(t, testLogger.ContainsField(log.StepKey, "read-data"))
}

func TestNoRetry(t *testing.T) {
	calls := 0
	err := NoRetry().Execute(context.Background(), "once", func(context.Context) error {
		calls++
		return errors.NewIOError("read", "x", fs.ErrNotExist)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
