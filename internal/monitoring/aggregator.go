package monitoring

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"sysdash/internal/telemetry"
)

// DefaultGroupTimeout bounds each group's queries unless overridden.
const DefaultGroupTimeout = 3 * time.Second

// Observer receives the outcome of every collection.
type Observer interface {
	ObserveCollection(duration time.Duration, failed []Group, err error)
}

// Collector produces snapshots. Aggregator is the production implementation.
type Collector interface {
	Collect(ctx context.Context, groups ...Group) (*Snapshot, error)
}

// Aggregator fans out one query batch per metric group and joins the results
// into a Snapshot.
type Aggregator struct {
	source       telemetry.Source
	logger       *zap.SugaredLogger
	groupTimeout time.Duration
	observer     Observer
	now          func() time.Time
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithLogger sets the aggregator logger.
func WithLogger(logger *zap.SugaredLogger) AggregatorOption {
	return func(a *Aggregator) { a.logger = logger }
}

// WithGroupTimeout bounds each group; a timeout counts as a group failure.
func WithGroupTimeout(d time.Duration) AggregatorOption {
	return func(a *Aggregator) {
		if d > 0 {
			a.groupTimeout = d
		}
	}
}

// WithObserver registers a collection observer, e.g. Prometheus metrics.
func WithObserver(o Observer) AggregatorOption {
	return func(a *Aggregator) { a.observer = o }
}

// NewAggregator creates an Aggregator querying source.
func NewAggregator(source telemetry.Source, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		source:       source,
		logger:       zap.NewNop().Sugar(),
		groupTimeout: DefaultGroupTimeout,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var _ Collector = (*Aggregator)(nil)

type groupResult struct {
	group Group
	value any
	err   error
}

// Collect queries the requested groups concurrently (all groups when none
// are given) and waits for every one of them. Failed groups are left absent
// and recorded in Snapshot.Failures. Only when every group fails does Collect
// return an error, wrapping ErrAggregationFailed.
func (a *Aggregator) Collect(ctx context.Context, groups ...Group) (*Snapshot, error) {
	groups = uniqueGroups(groups)
	started := a.now()

	results := make([]groupResult, len(groups))
	var wg sync.WaitGroup
	for i, g := range groups {
		wg.Add(1)
		go func(i int, g Group) {
			defer wg.Done()
			results[i] = a.collectGroup(ctx, g)
		}(i, g)
	}
	wg.Wait()

	snapshot := &Snapshot{CollectedAt: started, Failures: make(map[Group]error)}
	var errs []error
	var failed []Group
	for _, r := range results {
		if r.err != nil {
			snapshot.Failures[r.group] = r.err
			errs = append(errs, r.err)
			failed = append(failed, r.group)
			a.logger.Warnw("metric group unavailable", "group", r.group, "error", r.err)
			continue
		}
		snapshot.set(r.group, r.value)
	}

	var err error
	if len(groups) > 0 && len(failed) == len(groups) {
		err = fmt.Errorf("%w: %w", ErrAggregationFailed, errors.Join(errs...))
	}

	elapsed := a.now().Sub(started)
	if a.observer != nil {
		a.observer.ObserveCollection(elapsed, failed, err)
	}
	if err != nil {
		a.logger.Errorw("snapshot collection failed", "groups", len(groups), "error", err)
		return nil, err
	}

	a.logger.Debugw("snapshot collected", "groups", len(groups), "failed", len(failed), "duration", elapsed)
	return snapshot, nil
}

// collectGroup runs one group's sub-fetches under the group timeout. A fetch
// that ignores its context is abandoned when the timeout fires.
func (a *Aggregator) collectGroup(ctx context.Context, g Group) groupResult {
	gctx, cancel := context.WithTimeout(ctx, a.groupTimeout)
	defer cancel()

	done := make(chan groupResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- groupResult{group: g, err: fetchError(g, "", fmt.Errorf("fetch panicked: %v", r))}
			}
		}()
		value, err := a.fetchGroup(gctx, g)
		done <- groupResult{group: g, value: value, err: err}
	}()

	select {
	case r := <-done:
		return r
	case <-gctx.Done():
		return groupResult{group: g, err: fetchError(g, "", gctx.Err())}
	}
}

func (a *Aggregator) fetchGroup(ctx context.Context, g Group) (any, error) {
	switch g {
	case GroupCPU:
		return a.fetchCPU(ctx)
	case GroupMemory:
		return a.fetchMemory(ctx)
	case GroupDisk:
		return a.fetchDisk(ctx)
	case GroupGPU:
		return a.fetchGPU(ctx)
	case GroupNetwork:
		return a.fetchNetwork(ctx)
	case GroupSystem:
		return a.fetchSystem(ctx)
	case GroupBattery:
		return a.fetchBattery(ctx)
	}
	return nil, fetchError(g, "", fmt.Errorf("unknown metric group"))
}

func (a *Aggregator) fetchCPU(ctx context.Context) (*CPUGroup, error) {
	info, err := a.source.CPU(ctx)
	if err != nil {
		return nil, fetchError(GroupCPU, "cpu", err)
	}
	load, err := a.source.CurrentLoad(ctx)
	if err != nil {
		return nil, fetchError(GroupCPU, "currentLoad", err)
	}
	temp, err := a.source.CPUTemperature(ctx)
	if err != nil {
		return nil, fetchError(GroupCPU, "cpuTemperature", err)
	}
	return &CPUGroup{Info: info, Load: load, Temperature: temp}, nil
}

func (a *Aggregator) fetchMemory(ctx context.Context) (*MemoryGroup, error) {
	mem, err := a.source.Mem(ctx)
	if err != nil {
		return nil, fetchError(GroupMemory, "mem", err)
	}
	layout, err := a.source.MemLayout(ctx)
	if err != nil {
		return nil, fetchError(GroupMemory, "memLayout", err)
	}
	return &MemoryGroup{Mem: mem, Layout: layout}, nil
}

func (a *Aggregator) fetchDisk(ctx context.Context) (*DiskGroup, error) {
	layout, err := a.source.DiskLayout(ctx)
	if err != nil {
		return nil, fetchError(GroupDisk, "diskLayout", err)
	}
	fs, err := a.source.FsSize(ctx)
	if err != nil {
		return nil, fetchError(GroupDisk, "fsSize", err)
	}
	return &DiskGroup{Layout: layout, FileSystems: fs}, nil
}

func (a *Aggregator) fetchGPU(ctx context.Context) (*GPUGroup, error) {
	controllers, err := a.source.Graphics(ctx)
	if err != nil {
		return nil, fetchError(GroupGPU, "graphics", err)
	}
	return &GPUGroup{Controllers: controllers}, nil
}

func (a *Aggregator) fetchNetwork(ctx context.Context) (*NetworkGroup, error) {
	interfaces, err := a.source.NetworkInterfaces(ctx)
	if err != nil {
		return nil, fetchError(GroupNetwork, "networkInterfaces", err)
	}
	stats, err := a.source.NetworkStats(ctx)
	if err != nil {
		return nil, fetchError(GroupNetwork, "networkStats", err)
	}
	return &NetworkGroup{Interfaces: interfaces, Stats: stats}, nil
}

func (a *Aggregator) fetchSystem(ctx context.Context) (*SystemGroup, error) {
	system, err := a.source.System(ctx)
	if err != nil {
		return nil, fetchError(GroupSystem, "system", err)
	}
	bios, err := a.source.BIOS(ctx)
	if err != nil {
		return nil, fetchError(GroupSystem, "bios", err)
	}
	baseboard, err := a.source.Baseboard(ctx)
	if err != nil {
		return nil, fetchError(GroupSystem, "baseboard", err)
	}
	osInfo, err := a.source.OSInfo(ctx)
	if err != nil {
		return nil, fetchError(GroupSystem, "osInfo", err)
	}
	return &SystemGroup{System: system, BIOS: bios, Baseboard: baseboard, OS: osInfo}, nil
}

func (a *Aggregator) fetchBattery(ctx context.Context) (*BatteryGroup, error) {
	battery, err := a.source.Battery(ctx)
	if err != nil {
		return nil, fetchError(GroupBattery, "battery", err)
	}
	return &BatteryGroup{Battery: battery}, nil
}

func uniqueGroups(groups []Group) []Group {
	if len(groups) == 0 {
		return AllGroups
	}
	seen := make(map[Group]bool, len(groups))
	unique := make([]Group, 0, len(groups))
	for _, g := range groups {
		if seen[g] {
			continue
		}
		seen[g] = true
		unique = append(unique, g)
	}
	return unique
}
