package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddFuncAndRunNow(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Release()

	var calls atomic.Int32
	id, err := s.AddFunc("autosave", "@every 1h", func() error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)
	assert.NotZero(t, id)

	require.NoError(t, s.RunNow("autosave"))
	assert.Equal(t, int32(1), calls.Load())

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "autosave", jobs[0].Name)
	assert.Equal(t, int64(1), jobs[0].RunCount)
	assert.Equal(t, int64(0), jobs[0].FailCount)
}

func TestDuplicateJobName(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Release()

	_, err = s.AddFunc("sweep", "@every 1m", func() error { return nil })
	require.NoError(t, err)
	_, err = s.AddFunc("sweep", "@every 1m", func() error { return nil })
	assert.ErrorIs(t, err, ErrDuplicateJob)

	_, err = s.AddFunc("", "@every 1m", func() error { return nil })
	assert.ErrorIs(t, err, ErrEmptyJobName)
}

func TestRetryWithBackoff(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Release()

	var calls atomic.Int32
	_, err = s.AddFunc("flaky", "@every 1h", func() error {
		if calls.Add(1) < 3 {
			return errors.New("transient")
		}
		return nil
	}, WithMaxRetries(3), WithBackoffStrategy(BackoffFixed), WithInitialBackoff(time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, s.RunNow("flaky"))
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetryExhausted(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Release()

	_, err = s.AddFunc("broken", "@every 1h", func() error {
		return errors.New("permanent")
	}, WithMaxRetries(1), WithInitialBackoff(time.Millisecond))
	require.NoError(t, err)

	assert.Error(t, s.RunNow("broken"))
	assert.Equal(t, int64(1), s.ListJobs()[0].FailCount)
}

func TestBackoffCalculation(t *testing.T) {
	o := JobOptions{
		BackoffStrategy:   BackoffExponential,
		InitialBackoff:    100 * time.Millisecond,
		MaxBackoff:        time.Second,
		BackoffMultiplier: 2,
	}
	assert.Equal(t, 100*time.Millisecond, o.backoff(1))
	assert.Equal(t, 200*time.Millisecond, o.backoff(2))
	assert.Equal(t, 400*time.Millisecond, o.backoff(3))
	assert.Equal(t, time.Second, o.backoff(10))
}

func TestRemove(t *testing.T) {
	s, err := New(nil)
	require.NoError(t, err)
	defer s.Release()

	_, err = s.AddFunc("backup", "@daily", func() error { return nil })
	require.NoError(t, err)
	require.NoError(t, s.Remove("backup"))
	assert.ErrorIs(t, s.Remove("backup"), ErrJobNotFound)
	assert.Empty(t, s.ListJobs())
}
