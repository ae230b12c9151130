package telemetry

import (
	"time"
)

// Records returned by a Source. Every optional field is a pointer or an empty
// string so that "not reported" stays distinguishable from a real zero.

// CPUInfo is the static processor description.
type CPUInfo struct {
	Manufacturer  string   `json:"manufacturer"`
	Brand         string   `json:"brand"`
	Cores         *int     `json:"cores,omitempty"`         // logical processors
	PhysicalCores *int     `json:"physicalCores,omitempty"` // physical cores
	Speed         *float64 `json:"speed,omitempty"`         // GHz
	SpeedMax      *float64 `json:"speedMax,omitempty"`      // GHz
}

// CoreLoad is the utilization of one logical core (0-100).
type CoreLoad struct {
	Load *float64 `json:"load,omitempty"`
}

// CPULoad is the current processor utilization.
type CPULoad struct {
	CurrentLoad *float64   `json:"currentLoad,omitempty"`
	Cpus        []CoreLoad `json:"cpus"`
}

// CPUTemperature holds package/core temperatures in °C.
type CPUTemperature struct {
	Main  *float64  `json:"main,omitempty"`
	Max   *float64  `json:"max,omitempty"`
	Cores []float64 `json:"cores,omitempty"`
}

// MemInfo is the system memory usage in bytes.
type MemInfo struct {
	Total     *uint64 `json:"total,omitempty"`
	Used      *uint64 `json:"used,omitempty"`
	Free      *uint64 `json:"free,omitempty"`
	Available *uint64 `json:"available,omitempty"`
	Active    *uint64 `json:"active,omitempty"`
	SwapTotal *uint64 `json:"swaptotal,omitempty"`
	SwapUsed  *uint64 `json:"swapused,omitempty"`
}

// MemModule is one installed memory module.
type MemModule struct {
	Bank         string   `json:"bank"`
	Size         *uint64  `json:"size,omitempty"`
	Type         string   `json:"type"`
	ClockSpeed   *int     `json:"clockSpeed,omitempty"` // MHz
	Manufacturer string   `json:"manufacturer"`
	PartNum      string   `json:"partNum"`
	SerialNum    string   `json:"serialNum"`
	Voltage      *float64 `json:"voltage,omitempty"`
}

// DiskDevice is one physical block device.
type DiskDevice struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Vendor        string  `json:"vendor"`
	Size          *uint64 `json:"size,omitempty"`
	InterfaceType string  `json:"interfaceType"`
	SerialNum     string  `json:"serialNum"`
	Removable     bool    `json:"removable"`
}

// FileSystem is the usage of one mounted filesystem.
type FileSystem struct {
	FS        string   `json:"fs"`
	Type      string   `json:"type"`
	Mount     string   `json:"mount"`
	Size      *uint64  `json:"size,omitempty"`
	Used      *uint64  `json:"used,omitempty"`
	Available *uint64  `json:"available,omitempty"`
	Use       *float64 `json:"use,omitempty"`
}

// GPUController is one graphics adapter.
type GPUController struct {
	Vendor         string   `json:"vendor"`
	Model          string   `json:"model"`
	Bus            string   `json:"bus"`
	VRAM           *uint64  `json:"vram,omitempty"` // MB
	TemperatureGPU *float64 `json:"temperatureGpu,omitempty"`
	UtilizationGPU *float64 `json:"utilizationGpu,omitempty"`
	MemoryUsed     *uint64  `json:"memoryUsed,omitempty"`  // MB
	MemoryTotal    *uint64  `json:"memoryTotal,omitempty"` // MB
}

// NetInterface is the static description of a network interface.
type NetInterface struct {
	Iface     string   `json:"iface"`
	Type      string   `json:"type"`
	OperState string   `json:"operstate"`
	IP4       string   `json:"ip4"`
	IP6       string   `json:"ip6"`
	MAC       string   `json:"mac"`
	Speed     *float64 `json:"speed,omitempty"` // Mbit/s
	MTU       *int     `json:"mtu,omitempty"`
	Internal  bool     `json:"internal"`
}

// NetStats are the traffic counters of one interface. Rates are absent until
// a previous sample exists.
type NetStats struct {
	Iface     string   `json:"iface"`
	OperState string   `json:"operstate"`
	RxBytes   *uint64  `json:"rx_bytes,omitempty"`
	TxBytes   *uint64  `json:"tx_bytes,omitempty"`
	RxSec     *float64 `json:"rx_sec,omitempty"`
	TxSec     *float64 `json:"tx_sec,omitempty"`
	Ms        *int64   `json:"ms,omitempty"`
}

// SystemInfo is the machine identity.
type SystemInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Version      string `json:"version"`
	Serial       string `json:"serial"`
	UUID         string `json:"uuid"`
	SKU          string `json:"sku"`
}

// BIOSInfo is the firmware identity.
type BIOSInfo struct {
	Vendor      string `json:"vendor"`
	Version     string `json:"version"`
	ReleaseDate string `json:"releaseDate"`
}

// BaseboardInfo is the mainboard identity.
type BaseboardInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Version      string `json:"version"`
	Serial       string `json:"serial"`
	AssetTag     string `json:"assetTag"`
}

// OSInfo is the operating system identity.
type OSInfo struct {
	Platform string     `json:"platform"`
	Distro   string     `json:"distro"`
	Release  string     `json:"release"`
	Kernel   string     `json:"kernel"`
	Arch     string     `json:"arch"`
	Hostname string     `json:"hostname"`
	BootTime *time.Time `json:"bootTime,omitempty"`
	Uptime   *uint64    `json:"uptime,omitempty"` // seconds
}

// BatteryInfo is the state of the primary battery. HasBattery is false on
// machines without one; every other field is then absent.
type BatteryInfo struct {
	HasBattery       bool     `json:"hasBattery"`
	IsCharging       bool     `json:"isCharging"`
	ACConnected      bool     `json:"acConnected"`
	Percent          *float64 `json:"percent,omitempty"`
	TimeRemaining    *float64 `json:"timeRemaining,omitempty"` // minutes
	MaxCapacity      *float64 `json:"maxCapacity,omitempty"`   // mWh, full charge
	CurrentCapacity  *float64 `json:"currentCapacity,omitempty"`
	DesignedCapacity *float64 `json:"designedCapacity,omitempty"`
	CapacityHealth   *float64 `json:"capacityHealth,omitempty"` // percent of design
	CycleCount       *int     `json:"cycleCount,omitempty"`
	Voltage          *float64 `json:"voltage,omitempty"`
	Manufacturer     string   `json:"manufacturer"`
	Model            string   `json:"model"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
