package monitoring

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedCollector blocks every Collect until release is closed.
type gatedCollector struct {
	entered chan struct{}
	release chan struct{}
	calls   atomic.Int64
}

func (g *gatedCollector) Collect(ctx context.Context, _ ...Group) (*Snapshot, error) {
	g.calls.Add(1)
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &Snapshot{CollectedAt: time.Now()}, nil
}

func TestScheduler_RefreshRejectsOverlap(t *testing.T) {
	gate := &gatedCollector{entered: make(chan struct{}, 1), release: make(chan struct{})}
	s := NewScheduler(gate, time.Hour)

	result := make(chan error, 1)
	go func() {
		_, err := s.Refresh(context.Background())
		result <- err
	}()
	<-gate.entered

	_, err := s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrCollectionInFlight)

	close(gate.release)
	require.NoError(t, <-result)
	assert.Equal(t, int64(1), gate.calls.Load())
	assert.NotNil(t, s.Latest())
}

func TestScheduler_StartCollectsImmediately(t *testing.T) {
	s := NewScheduler(NewAggregator(newFakeSource()), time.Hour)

	received := make(chan *Snapshot, 1)
	s.Subscribe(func(snapshot *Snapshot) {
		select {
		case received <- snapshot:
		default:
		}
	})

	s.Start(context.Background())
	defer s.Stop()
	assert.True(t, s.IsRunning())

	select {
	case snapshot := <-received:
		assert.NotNil(t, snapshot.CPU)
		assert.Same(t, snapshot, s.Latest())
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after Start")
	}
}

func TestScheduler_TicksOnInterval(t *testing.T) {
	src := newFakeSource()
	s := NewScheduler(NewAggregator(src), 20*time.Millisecond, WithGroups(GroupBattery))

	var count atomic.Int64
	s.Subscribe(func(*Snapshot) { count.Add(1) })

	s.Start(context.Background())
	require.Eventually(t, func() bool { return count.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	assert.False(t, s.IsRunning())
	stopped := count.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stopped, count.Load(), "no collections after Stop")
}

func TestScheduler_StopIsIdempotent(t *testing.T) {
	s := NewScheduler(NewAggregator(newFakeSource()), 0)
	assert.Equal(t, DefaultInterval, s.Interval())

	s.Stop()
	s.Start(context.Background())
	s.Start(context.Background())
	s.Stop()
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestScheduler_LastError(t *testing.T) {
	src := newFakeSource()
	src.fail["battery"] = errors.New("no acpi")
	s := NewScheduler(NewAggregator(src), time.Hour, WithGroups(GroupBattery))

	_, err := s.Refresh(context.Background())
	require.ErrorIs(t, err, ErrAggregationFailed)
	assert.ErrorIs(t, s.LastError(), ErrAggregationFailed)
	assert.Nil(t, s.Latest(), "failed collections keep the previous snapshot")

	delete(src.fail, "battery")
	_, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.NoError(t, s.LastError())
	assert.NotNil(t, s.Latest())
}

func TestScheduler_ReportsScheduledFailures(t *testing.T) {
	src := newFakeSource()
	src.fail["battery"] = errors.New("no acpi")

	reported := make(chan error, 1)
	s := NewScheduler(NewAggregator(src), time.Hour,
		WithGroups(GroupBattery),
		WithErrorHandler(func(err error) {
			select {
			case reported <- err:
			default:
			}
		}),
	)

	s.Start(context.Background())
	defer s.Stop()

	select {
	case err := <-reported:
		assert.ErrorIs(t, err, ErrAggregationFailed)
	case <-time.After(2 * time.Second):
		t.Fatal("failure of the first tick was not reported")
	}
}
