package monitoring

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"sysdash/internal/telemetry"
)

// Group은 하나의 메트릭 카테고리입니다.
type Group string

const (
	GroupCPU     Group = "cpu"
	GroupMemory  Group = "memory"
	GroupDisk    Group = "disk"
	GroupGPU     Group = "gpu"
	GroupNetwork Group = "network"
	GroupSystem  Group = "system"
	GroupBattery Group = "battery"
)

// AllGroups lists every metric group in display order.
var AllGroups = []Group{GroupSystem, GroupCPU, GroupMemory, GroupDisk, GroupGPU, GroupNetwork, GroupBattery}

// ParseGroup converts a name such as "cpu" into a Group.
func ParseGroup(name string) (Group, error) {
	g := Group(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllGroups {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("unknown metric group %q", name)
}

// ParseGroups parses a list of group names; an empty list means all groups.
func ParseGroups(names []string) ([]Group, error) {
	if len(names) == 0 {
		return AllGroups, nil
	}
	groups := make([]Group, 0, len(names))
	for _, name := range names {
		g, err := ParseGroup(name)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// CPUGroup bundles the cpu, currentLoad and cpuTemperature queries.
type CPUGroup struct {
	Info        *telemetry.CPUInfo        `json:"cpu"`
	Load        *telemetry.CPULoad        `json:"cpuLoad"`
	Temperature *telemetry.CPUTemperature `json:"cpuTemp"`
}

// MemoryGroup bundles the mem and memLayout queries.
type MemoryGroup struct {
	Mem    *telemetry.MemInfo    `json:"mem"`
	Layout []telemetry.MemModule `json:"memLayout"`
}

// DiskGroup bundles the diskLayout and fsSize queries.
type DiskGroup struct {
	Layout      []telemetry.DiskDevice `json:"diskLayout"`
	FileSystems []telemetry.FileSystem `json:"fsSize"`
}

// GPUGroup holds the graphics query.
type GPUGroup struct {
	Controllers []telemetry.GPUController `json:"controllers"`
}

// NetworkGroup bundles the networkInterfaces and networkStats queries.
type NetworkGroup struct {
	Interfaces []telemetry.NetInterface `json:"networkInterfaces"`
	Stats      []telemetry.NetStats     `json:"networkStats"`
}

// StatsFor returns the counters of the named interface.
func (n *NetworkGroup) StatsFor(iface string) (telemetry.NetStats, bool) {
	for _, s := range n.Stats {
		if s.Iface == iface {
			return s, true
		}
	}
	return telemetry.NetStats{}, false
}

// SystemGroup bundles the system, bios, baseboard and osInfo queries.
type SystemGroup struct {
	System    *telemetry.SystemInfo    `json:"system"`
	BIOS      *telemetry.BIOSInfo      `json:"bios"`
	Baseboard *telemetry.BaseboardInfo `json:"baseboard"`
	OS        *telemetry.OSInfo        `json:"osInfo"`
}

// BatteryGroup holds the battery query.
type BatteryGroup struct {
	Battery *telemetry.BatteryInfo `json:"battery"`
}

// Snapshot은 특정 시점의 모든 메트릭 그룹 스냅샷입니다.
// A nil group slot means the group is absent; Failures holds the reason for
// every requested group that could not be collected. A Snapshot is never
// modified after Collect returns it.
type Snapshot struct {
	CollectedAt time.Time `json:"collectedAt"`

	CPU     *CPUGroup     `json:"cpu,omitempty"`
	Memory  *MemoryGroup  `json:"memory,omitempty"`
	Disk    *DiskGroup    `json:"disk,omitempty"`
	GPU     *GPUGroup     `json:"gpu,omitempty"`
	Network *NetworkGroup `json:"network,omitempty"`
	System  *SystemGroup  `json:"system,omitempty"`
	Battery *BatteryGroup `json:"battery,omitempty"`

	Failures map[Group]error `json:"-"`
}

// Absent reports whether the group has no data in this snapshot.
func (s *Snapshot) Absent(g Group) bool {
	switch g {
	case GroupCPU:
		return s.CPU == nil
	case GroupMemory:
		return s.Memory == nil
	case GroupDisk:
		return s.Disk == nil
	case GroupGPU:
		return s.GPU == nil
	case GroupNetwork:
		return s.Network == nil
	case GroupSystem:
		return s.System == nil
	case GroupBattery:
		return s.Battery == nil
	}
	return true
}

// Present returns the groups that carry data, in display order.
func (s *Snapshot) Present() []Group {
	var groups []Group
	for _, g := range AllGroups {
		if !s.Absent(g) {
			groups = append(groups, g)
		}
	}
	return groups
}

// FailedGroups returns the groups that failed, sorted by name.
func (s *Snapshot) FailedGroups() []Group {
	groups := make([]Group, 0, len(s.Failures))
	for g := range s.Failures {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}

// FailureMessages returns the failure reason per group as text.
func (s *Snapshot) FailureMessages() map[Group]string {
	if len(s.Failures) == 0 {
		return nil
	}
	messages := make(map[Group]string, len(s.Failures))
	for g, err := range s.Failures {
		messages[g] = err.Error()
	}
	return messages
}

// MarshalJSON adds the failure reasons under "errors".
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	type plain Snapshot
	return json.Marshal(struct {
		*plain
		Errors map[Group]string `json:"errors,omitempty"`
	}{(*plain)(s), s.FailureMessages()})
}

func (s *Snapshot) set(g Group, value any) {
	switch v := value.(type) {
	case *CPUGroup:
		s.CPU = v
	case *MemoryGroup:
		s.Memory = v
	case *DiskGroup:
		s.Disk = v
	case *GPUGroup:
		s.GPU = v
	case *NetworkGroup:
		s.Network = v
	case *SystemGroup:
		s.System = v
	case *BatteryGroup:
		s.Battery = v
	default:
		panic(fmt.Sprintf("monitoring: unexpected value %T for group %s", value, g))
	}
}
