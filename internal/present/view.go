package present

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"sysdash/internal/monitoring"
	"sysdash/internal/telemetry"
)

// Field is one labelled value of a card.
type Field struct {
	Label string       `json:"label"`
	Value DisplayValue `json:"value"`
}

// Item is a repeated entity inside a card, e.g. one core or one disk.
type Item struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

// Lookup returns the value of the field with the given label.
func (i Item) Lookup(label string) (DisplayValue, bool) {
	return lookup(i.Fields, label)
}

// GroupView is the rendered card of one metric group.
type GroupView struct {
	Absent bool    `json:"absent"`
	Error  string  `json:"error,omitempty"`
	Note   string  `json:"note,omitempty"`
	Fields []Field `json:"fields,omitempty"`
	Items  []Item  `json:"items,omitempty"`
}

// Lookup returns the value of the field with the given label.
func (g GroupView) Lookup(label string) (DisplayValue, bool) {
	return lookup(g.Fields, label)
}

func lookup(fields []Field, label string) (DisplayValue, bool) {
	for _, f := range fields {
		if f.Label == label {
			return f.Value, true
		}
	}
	return DisplayValue{}, false
}

// View is a fully rendered snapshot.
type View struct {
	CollectedAt time.Time                      `json:"collectedAt"`
	Groups      map[monitoring.Group]GroupView `json:"groups"`
}

// Renderer builds dashboard views from snapshots.
type Renderer struct {
	Normalizer Normalizer
	now        func() time.Time
}

// NewRenderer returns a Renderer formatting values with n.
func NewRenderer(n Normalizer) *Renderer {
	return &Renderer{Normalizer: n, now: time.Now}
}

// Render maps every group of the snapshot to its card. Groups missing from
// the snapshot are rendered absent, with the failure reason when there is
// one.
func (r *Renderer) Render(s *monitoring.Snapshot) *View {
	view := &View{Groups: make(map[monitoring.Group]GroupView, len(monitoring.AllGroups))}
	if s == nil {
		return view
	}
	view.CollectedAt = s.CollectedAt

	for _, g := range monitoring.AllGroups {
		if s.Absent(g) {
			gv := GroupView{Absent: true}
			if err, ok := s.Failures[g]; ok && err != nil {
				gv.Error = err.Error()
			}
			view.Groups[g] = gv
			continue
		}
		view.Groups[g] = r.renderGroup(s, g)
	}
	return view
}

func (r *Renderer) renderGroup(s *monitoring.Snapshot, g monitoring.Group) GroupView {
	switch g {
	case monitoring.GroupSystem:
		return r.system(s.System)
	case monitoring.GroupCPU:
		return r.cpu(s.CPU)
	case monitoring.GroupMemory:
		return r.memory(s.Memory)
	case monitoring.GroupDisk:
		return r.disk(s.Disk)
	case monitoring.GroupGPU:
		return r.gpu(s.GPU)
	case monitoring.GroupNetwork:
		return r.network(s.Network)
	case monitoring.GroupBattery:
		return r.battery(s.Battery)
	}
	return GroupView{Absent: true}
}

func (r *Renderer) field(label string, raw any, rule Rule) Field {
	return Field{Label: label, Value: r.Normalizer.Normalize(raw, rule)}
}

func textField(label, text string) Field {
	return Field{Label: label, Value: DisplayValue{Text: text}}
}

func (r *Renderer) system(sg *monitoring.SystemGroup) GroupView {
	system := sg.System
	if system == nil {
		system = &telemetry.SystemInfo{}
	}
	bios := sg.BIOS
	if bios == nil {
		bios = &telemetry.BIOSInfo{}
	}
	board := sg.Baseboard
	if board == nil {
		board = &telemetry.BaseboardInfo{}
	}
	osInfo := sg.OS
	if osInfo == nil {
		osInfo = &telemetry.OSInfo{}
	}

	boot := NA()
	if osInfo.BootTime != nil && !osInfo.BootTime.IsZero() {
		boot = DisplayValue{Text: humanize.RelTime(*osInfo.BootTime, r.now(), "ago", "from now")}
	}
	uptime := NA()
	if osInfo.Uptime != nil && *osInfo.Uptime > 0 {
		uptime = DisplayValue{Text: formatSeconds(float64(*osInfo.Uptime)), Unit: "s"}
	}

	return GroupView{Fields: []Field{
		r.field("Manufacturer", system.Manufacturer, RuleText),
		r.field("Model", system.Model, RuleText),
		r.field("OS", osInfo.Distro, RuleText),
		r.field("Version", osInfo.Release, RuleText),
		r.field("Architecture", osInfo.Arch, RuleText),
		textField("Baseboard", JoinText(board.Manufacturer, board.Model)),
		textField("BIOS", JoinText(bios.Vendor, bios.Version)),
		r.field("Serial", system.Serial, RuleText),
		r.field("Hostname", osInfo.Hostname, RuleText),
		r.field("Kernel", osInfo.Kernel, RuleText),
		{Label: "Boot time", Value: boot},
		{Label: "Uptime", Value: uptime},
	}}
}

func (r *Renderer) cpu(cg *monitoring.CPUGroup) GroupView {
	info := cg.Info
	if info == nil {
		info = &telemetry.CPUInfo{}
	}
	temp := cg.Temperature
	if temp == nil {
		temp = &telemetry.CPUTemperature{}
	}

	gv := GroupView{Fields: []Field{
		r.field("Processor", info.Brand, RuleText),
		r.field("Manufacturer", info.Manufacturer, RuleText),
		r.field("Cores", info.Cores, RuleCount),
		r.field("Physical cores", info.PhysicalCores, RuleCount),
		r.field("Base speed", info.Speed, RuleFrequency),
		r.field("Max speed", info.SpeedMax, RuleFrequency),
		r.field("Temperature", temp.Main, RuleTemperature),
		r.field("Max temperature", temp.Max, RuleTemperature),
	}}

	if load := cg.Load; load != nil {
		gv.Fields = append(gv.Fields, Field{Label: "Load", Value: r.Normalizer.Bar(load.CurrentLoad, 100)})
		for i, core := range load.Cpus {
			gv.Items = append(gv.Items, Item{
				Title:  fmt.Sprintf("Core %d", i+1),
				Fields: []Field{{Label: "Load", Value: r.Normalizer.Bar(core.Load, 100)}},
			})
		}
	} else {
		gv.Fields = append(gv.Fields, Field{Label: "Load", Value: NA()})
	}
	return gv
}

func (r *Renderer) memory(mg *monitoring.MemoryGroup) GroupView {
	mem := mg.Mem
	if mem == nil {
		mem = &telemetry.MemInfo{}
	}

	gv := GroupView{Fields: []Field{
		r.field("Total", mem.Total, RuleBytes),
		r.field("Used", mem.Used, RuleBytes),
		r.field("Free", mem.Free, RuleBytes),
		r.field("Available", mem.Available, RuleBytes),
		{Label: "Usage", Value: r.usage(mem.Used, mem.Total)},
		{Label: "Active", Value: r.usage(mem.Active, mem.Total)},
	}}
	if mem.SwapTotal != nil && *mem.SwapTotal > 0 {
		gv.Fields = append(gv.Fields, Field{Label: "Swap", Value: r.usage(mem.SwapUsed, mem.SwapTotal)})
	}

	for i, module := range mg.Layout {
		if module.Size == nil || *module.Size == 0 {
			continue
		}
		fields := []Field{
			r.field("Size", module.Size, RuleBytes),
			textField("Type", TextOr(module.Type, "Unknown")),
			r.field("Clock speed", clockMHz(module.ClockSpeed), RuleText),
			r.field("Manufacturer", module.Manufacturer, RuleText),
		}
		if part := SanitizeText(module.PartNum); part != NotAvailable {
			fields = append(fields, textField("Part number", part))
		}
		if module.Voltage != nil && *module.Voltage > 0 {
			fields = append(fields, r.field("Voltage", module.Voltage, RuleVoltage))
		}
		gv.Items = append(gv.Items, Item{
			Title:  fmt.Sprintf("Slot %d", i+1),
			Fields: fields,
		})
	}
	return gv
}

func clockMHz(mhz *int) string {
	if mhz == nil || *mhz <= 0 {
		return ""
	}
	return fmt.Sprintf("%d MHz", *mhz)
}

// usage renders used out of total bytes as the used size plus a bar.
func (r *Renderer) usage(used, total *uint64) DisplayValue {
	if used == nil || total == nil {
		return NA()
	}
	dv := Usage(*used, *total)
	text, unit := scaleBytes(float64(*used), r.Normalizer.Precision)
	dv.Text = text
	dv.Unit = unit
	return dv
}

func (r *Renderer) disk(dg *monitoring.DiskGroup) GroupView {
	var gv GroupView
	for i, disk := range dg.Layout {
		gv.Items = append(gv.Items, Item{
			Title: fmt.Sprintf("Disk %d: %s", i+1, SanitizeText(disk.Name)),
			Fields: []Field{
				r.field("Type", disk.Type, RuleText),
				r.field("Vendor", disk.Vendor, RuleText),
				r.field("Size", nonZero(disk.Size), RuleBytes),
				r.field("Interface", disk.InterfaceType, RuleText),
			},
		})
	}

	for _, fs := range dg.FileSystems {
		if fs.Size == nil || *fs.Size == 0 {
			continue
		}
		var free *uint64
		if fs.Used != nil && *fs.Used <= *fs.Size {
			free = telemetry.Ptr(*fs.Size - *fs.Used)
		}
		gv.Items = append(gv.Items, Item{
			Title: fmt.Sprintf("%s (%s)", SanitizeText(fs.FS), SanitizeText(fs.Mount)),
			Fields: []Field{
				r.field("Size", fs.Size, RuleBytes),
				r.field("Used", fs.Used, RuleBytes),
				r.field("Free", free, RuleBytes),
				r.field("Type", fs.Type, RuleText),
				{Label: "Usage", Value: r.usage(fs.Used, fs.Size)},
			},
		})
	}
	return gv
}

func nonZero(v *uint64) *uint64 {
	if v == nil || *v == 0 {
		return nil
	}
	return v
}

const mebibyte = 1024 * 1024

func (r *Renderer) gpu(gg *monitoring.GPUGroup) GroupView {
	if len(gg.Controllers) == 0 {
		return GroupView{Note: "no graphics adapter detected"}
	}

	var gv GroupView
	for i, gpu := range gg.Controllers {
		var vram *uint64
		if gpu.VRAM != nil && *gpu.VRAM > 0 {
			vram = telemetry.Ptr(*gpu.VRAM * mebibyte)
		}
		fields := []Field{
			r.field("Vendor", gpu.Vendor, RuleText),
			r.field("VRAM", vram, RuleBytes),
			r.field("Temperature", gpu.TemperatureGPU, RuleTemperature),
			r.field("Usage", gpu.UtilizationGPU, RuleUsage),
		}
		if gpu.MemoryUsed != nil && gpu.MemoryTotal != nil && *gpu.MemoryTotal > 0 {
			fields = append(fields, Field{
				Label: "VRAM usage",
				Value: r.usage(telemetry.Ptr(*gpu.MemoryUsed*mebibyte), telemetry.Ptr(*gpu.MemoryTotal*mebibyte)),
			})
		}
		gv.Items = append(gv.Items, Item{
			Title:  fmt.Sprintf("GPU %d: %s", i+1, SanitizeText(gpu.Model)),
			Fields: fields,
		})
	}
	return gv
}

func (r *Renderer) network(ng *monitoring.NetworkGroup) GroupView {
	var gv GroupView
	for _, nic := range ng.Interfaces {
		if nic.Iface == "" {
			continue
		}
		stats, _ := ng.StatsFor(nic.Iface)
		status := "disconnected"
		if nic.OperState == "up" {
			status = "connected"
		}
		gv.Items = append(gv.Items, Item{
			Title: SanitizeText(nic.Iface),
			Fields: []Field{
				textField("Status", status),
				r.field("Type", nic.Type, RuleText),
				r.field("IPv4", nic.IP4, RuleText),
				r.field("IPv6", nic.IP6, RuleText),
				r.field("MAC", nic.MAC, RuleText),
				r.field("Speed", nic.Speed, RuleLinkSpeed),
				r.field("Download", stats.RxSec, RuleRate),
				r.field("Upload", stats.TxSec, RuleRate),
				r.field("Received", nonZero(stats.RxBytes), RuleBytes),
			},
		})
	}
	return gv
}

func (r *Renderer) battery(bg *monitoring.BatteryGroup) GroupView {
	b := bg.Battery
	if b == nil || !b.HasBattery {
		return GroupView{Absent: true, Note: "no battery"}
	}

	state := "discharging"
	if b.IsCharging {
		state = "charging"
	}
	return GroupView{Fields: []Field{
		textField("State", state),
		{Label: "Charge", Value: r.Normalizer.Bar(b.Percent, 100)},
		r.field("Time remaining", b.TimeRemaining, RuleDuration),
		r.field("Full capacity", b.MaxCapacity, RuleEnergy),
		r.field("Current capacity", b.CurrentCapacity, RuleEnergy),
		r.field("Design capacity", b.DesignedCapacity, RuleEnergy),
		r.field("Health", b.CapacityHealth, RulePercent),
		r.field("Cycle count", b.CycleCount, RuleCount),
		r.field("Manufacturer", b.Manufacturer, RuleText),
	}}
}
