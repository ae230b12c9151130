package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingObserver struct {
	mu     sync.Mutex
	failed [][]Group
	errs   []error
}

func (o *recordingObserver) ObserveCollection(_ time.Duration, failed []Group, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, failed)
	o.errs = append(o.errs, err)
}

func TestAggregator_CollectAllGroups(t *testing.T) {
	agg := NewAggregator(newFakeSource())

	snapshot, err := agg.Collect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	assert.Equal(t, AllGroups, snapshot.Present())
	assert.Empty(t, snapshot.Failures)
	assert.False(t, snapshot.CollectedAt.IsZero())
	assert.Equal(t, "Core i7-9700K", snapshot.CPU.Info.Brand)
	assert.Equal(t, 48.0, *snapshot.CPU.Temperature.Main)
	assert.Len(t, snapshot.Memory.Layout, 1)
	assert.Equal(t, "AMI", snapshot.System.BIOS.Vendor)
}

func TestAggregator_OneGroupFails(t *testing.T) {
	src := newFakeSource()
	src.fail["memLayout"] = errors.New("dmidecode not permitted")

	core, logs := observer.New(zapcore.WarnLevel)
	agg := NewAggregator(src, WithLogger(zap.New(core).Sugar()))

	snapshot, err := agg.Collect(context.Background())
	require.NoError(t, err)

	assert.True(t, snapshot.Absent(GroupMemory), "failed group must be absent")
	assert.Nil(t, snapshot.Memory)
	assert.NotNil(t, snapshot.CPU)
	assert.NotNil(t, snapshot.Disk)
	assert.NotNil(t, snapshot.Network)

	require.Contains(t, snapshot.Failures, GroupMemory)
	var fetchErr *GroupFetchError
	require.ErrorAs(t, snapshot.Failures[GroupMemory], &fetchErr)
	assert.Equal(t, GroupMemory, fetchErr.Group)
	assert.Equal(t, "memLayout", fetchErr.Op)
	assert.Equal(t, "[memory] memLayout: dmidecode not permitted", fetchErr.Error())

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "metric group unavailable", logs.All()[0].Message)
}

func TestAggregator_AllGroupsFail(t *testing.T) {
	src := newFakeSource()
	for _, op := range []string{"cpu", "mem", "diskLayout", "graphics", "networkInterfaces", "system", "battery"} {
		src.fail[op] = errors.New("sensor unavailable")
	}
	obs := &recordingObserver{}
	agg := NewAggregator(src, WithObserver(obs))

	snapshot, err := agg.Collect(context.Background())
	assert.Nil(t, snapshot)
	require.ErrorIs(t, err, ErrAggregationFailed)

	var fetchErr *GroupFetchError
	assert.ErrorAs(t, err, &fetchErr)

	require.Len(t, obs.errs, 1)
	assert.ErrorIs(t, obs.errs[0], ErrAggregationFailed)
	assert.ElementsMatch(t, AllGroups, obs.failed[0])
}

func TestAggregator_RequestedSubset(t *testing.T) {
	src := newFakeSource()
	src.fail["graphics"] = errors.New("boom")
	agg := NewAggregator(src)

	snapshot, err := agg.Collect(context.Background(), GroupCPU, GroupCPU, GroupBattery)
	require.NoError(t, err)

	assert.Equal(t, []Group{GroupCPU, GroupBattery}, snapshot.Present())
	assert.True(t, snapshot.Absent(GroupGPU))
	assert.Empty(t, snapshot.Failures, "groups that were not requested are not failures")
}

func TestAggregator_SubsetAllFailing(t *testing.T) {
	src := newFakeSource()
	src.fail["battery"] = errors.New("no acpi")
	agg := NewAggregator(src)

	_, err := agg.Collect(context.Background(), GroupBattery)
	assert.ErrorIs(t, err, ErrAggregationFailed)
}

func TestAggregator_GroupTimeout(t *testing.T) {
	src := newFakeSource()
	src.block["graphics"] = true
	agg := NewAggregator(src, WithGroupTimeout(50*time.Millisecond))

	started := time.Now()
	snapshot, err := agg.Collect(context.Background())
	require.NoError(t, err)

	assert.Less(t, time.Since(started), 2*time.Second)
	assert.True(t, snapshot.Absent(GroupGPU))
	assert.ErrorIs(t, snapshot.Failures[GroupGPU], context.DeadlineExceeded)
	assert.NotNil(t, snapshot.CPU)
}

func TestAggregator_RecoversPanics(t *testing.T) {
	src := newFakeSource()
	src.panics["osInfo"] = true
	agg := NewAggregator(src)

	snapshot, err := agg.Collect(context.Background())
	require.NoError(t, err)

	assert.True(t, snapshot.Absent(GroupSystem))
	require.Contains(t, snapshot.Failures, GroupSystem)
	assert.Contains(t, snapshot.Failures[GroupSystem].Error(), "osInfo exploded")
}

func TestAggregator_NoCaching(t *testing.T) {
	src := newFakeSource()
	agg := NewAggregator(src)

	_, err := agg.Collect(context.Background(), GroupGPU)
	require.NoError(t, err)
	_, err = agg.Collect(context.Background(), GroupGPU)
	require.NoError(t, err)

	assert.Equal(t, int64(2), src.calls.Load())
}

func TestSnapshot_MarshalJSONIncludesErrors(t *testing.T) {
	src := newFakeSource()
	src.fail["battery"] = errors.New("no acpi")
	agg := NewAggregator(src)

	snapshot, err := agg.Collect(context.Background(), GroupBattery, GroupGPU)
	require.NoError(t, err)

	data, err := json.Marshal(snapshot)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "gpu")
	assert.NotContains(t, decoded, "battery")
	assert.Equal(t, map[string]any{"battery": "[battery] battery: no acpi"}, decoded["errors"])
}

func TestParseGroups(t *testing.T) {
	groups, err := ParseGroups([]string{" CPU", "network"})
	require.NoError(t, err)
	assert.Equal(t, []Group{GroupCPU, GroupNetwork}, groups)

	all, err := ParseGroups(nil)
	require.NoError(t, err)
	assert.Equal(t, AllGroups, all)

	_, err = ParseGroup("fans")
	assert.Error(t, err)
}

func TestSnapshot_Samples(t *testing.T) {
	snapshot, err := NewAggregator(newFakeSource()).Collect(context.Background())
	require.NoError(t, err)

	values := map[string]float64{}
	for _, s := range snapshot.Samples() {
		values[s.Metric] = s.Value
	}

	assert.Equal(t, 25.0, values["cpu.load"])
	assert.Equal(t, 30.0, values["cpu.core.1"])
	assert.Equal(t, 48.0, values["cpu.temperature"])
	assert.Equal(t, 50.0, values["memory.used_percent"])
	assert.Equal(t, 25.0, values["disk./.used_percent"])
	assert.Equal(t, 12.0, values["gpu.0.utilization"])
	assert.Equal(t, 1024.0, values["net.eth0.rx_sec"])
	assert.Equal(t, 512.0, values["net.eth0.tx_sec"])
	assert.Equal(t, 80.0, values["battery.percent"])
}
