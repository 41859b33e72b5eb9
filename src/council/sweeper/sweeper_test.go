package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingExpirer struct {
	calls atomic.Int32
	err   error
}

func (c *countingExpirer) ExpireAll(context.Context) (int, error) {
	c.calls.Add(1)
	return 2, c.err
}

type outcomes struct{ ok, failed int }

func (o *outcomes) Sweep(err error) {
	if err != nil {
		o.failed++
		return
	}
	o.ok++
}

func TestRunOnce(t *testing.T) {
	exp := &countingExpirer{}
	obs := &outcomes{}
	s := New(exp, obs, nil)

	n, err := s.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	exp.err = errors.New("db gone")
	_, err = s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, obs.ok)
	assert.Equal(t, 1, obs.failed)
}

func TestStartSchedules(t *testing.T) {
	exp := &countingExpirer{}
	s := New(exp, nil, nil)
	require.Error(t, s.Start("not a schedule"))

	require.NoError(t, s.Start("@every 1s"))
	assert.Eventually(t, func() bool { return exp.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

type blockingExpirer struct {
	calls   atomic.Int32
	release chan struct{}
}

func (b *blockingExpirer) ExpireAll(context.Context) (int, error) {
	b.calls.Add(1)
	<-b.release
	return 0, nil
}

func TestOverlappingTicksSkipped(t *testing.T) {
	exp := &blockingExpirer{release: make(chan struct{})}
	s := New(exp, nil, nil)
	require.NoError(t, s.Start("@every 1s"))

	require.Eventually(t, func() bool { return exp.calls.Load() == 1 }, 3*time.Second, 20*time.Millisecond)
	// two more ticks pass while the first sweep is blocked
	time.Sleep(2500 * time.Millisecond)
	assert.Equal(t, int32(1), exp.calls.Load())

	close(exp.release)
	s.Stop()
}
