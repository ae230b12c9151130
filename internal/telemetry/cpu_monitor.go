package telemetry

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
)

var cpuVendors = map[string]string{
	"GenuineIntel": "Intel",
	"AuthenticAMD": "AMD",
	"CentaurHauls": "VIA",
	"HygonGenuine": "Hygon",
}

// CPU returns the processor model, vendor, core counts and clock.
func (h *HostSource) CPU(ctx context.Context) (*CPUInfo, error) {
	infos, err := cpu.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("cpu info: %w", err)
	}
	if len(infos) == 0 {
		return nil, fmt.Errorf("cpu info: no processors reported")
	}

	first := infos[0]
	result := &CPUInfo{
		Brand:        strings.TrimSpace(first.ModelName),
		Manufacturer: first.VendorID,
	}
	if vendor, ok := cpuVendors[first.VendorID]; ok {
		result.Manufacturer = vendor
	}
	if first.Mhz > 0 {
		result.Speed = Ptr(math.Round(first.Mhz/10) / 100)
	}

	// 논리 코어와 물리 코어를 각각 조회
	if logical, err := cpu.CountsWithContext(ctx, true); err == nil && logical > 0 {
		result.Cores = Ptr(logical)
	}
	if physical, err := cpu.CountsWithContext(ctx, false); err == nil && physical > 0 {
		result.PhysicalCores = Ptr(physical)
	}

	if maxKHz, ok := h.readSysfsInt("devices", "system", "cpu", "cpu0", "cpufreq", "cpuinfo_max_freq"); ok && maxKHz > 0 {
		result.SpeedMax = Ptr(math.Round(float64(maxKHz)/1e4) / 100)
	}

	return result, nil
}

// CurrentLoad samples total and per-core utilization over the configured
// sample window.
func (h *HostSource) CurrentLoad(ctx context.Context) (*CPULoad, error) {
	perCore, err := cpu.PercentWithContext(ctx, h.loadSample, true)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}

	load := &CPULoad{Cpus: make([]CoreLoad, 0, len(perCore))}
	var sum float64
	for _, p := range perCore {
		load.Cpus = append(load.Cpus, CoreLoad{Load: Ptr(p)})
		sum += p
	}
	if len(perCore) > 0 {
		load.CurrentLoad = Ptr(sum / float64(len(perCore)))
	}

	h.logger.Debugw("cpu load sampled", "cores", len(perCore), "load", load.CurrentLoad)
	return load, nil
}

// CPUTemperature reads processor sensors. Hosts without readable sensors
// report an empty record rather than an error.
func (h *HostSource) CPUTemperature(ctx context.Context) (*CPUTemperature, error) {
	sensors, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(sensors) == 0 {
		h.logger.Debugw("no temperature sensors", "error", err)
		return &CPUTemperature{}, nil
	}
	return cpuTemperatureFromSensors(sensors), nil
}

func cpuTemperatureFromSensors(sensors []host.TemperatureStat) *CPUTemperature {
	result := &CPUTemperature{}
	var packageTemp *float64

	for _, s := range sensors {
		key := strings.ToLower(s.SensorKey)
		if s.Temperature <= 0 || !isCPUSensor(key) {
			continue
		}
		switch {
		case strings.Contains(key, "package") || strings.Contains(key, "tctl") || strings.Contains(key, "tdie"):
			if packageTemp == nil || s.Temperature > *packageTemp {
				packageTemp = Ptr(s.Temperature)
			}
		default:
			result.Cores = append(result.Cores, s.Temperature)
		}
		if result.Max == nil || s.Temperature > *result.Max {
			result.Max = Ptr(s.Temperature)
		}
	}

	switch {
	case packageTemp != nil:
		result.Main = packageTemp
	case len(result.Cores) > 0:
		var sum float64
		for _, c := range result.Cores {
			sum += c
		}
		result.Main = Ptr(math.Round(sum/float64(len(result.Cores))*10) / 10)
	}
	return result
}

func isCPUSensor(key string) bool {
	for _, marker := range []string{"coretemp", "k10temp", "zenpower", "cpu", "package", "core", "tctl", "tdie"} {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
