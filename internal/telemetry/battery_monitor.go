package telemetry

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/distatus/battery"
)

// Battery returns the state of the first battery. Machines without a battery
// report HasBattery=false and no error.
func (h *HostSource) Battery(ctx context.Context) (*BatteryInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batteries, err := battery.GetAll()
	index := -1
	for i, b := range batteries {
		if b != nil {
			index = i
			break
		}
	}
	if index < 0 {
		if err != nil {
			return nil, fmt.Errorf("battery: %w", err)
		}
		return &BatteryInfo{HasBattery: false, ACConnected: true}, nil
	}

	first := batteries[index]
	info := batteryInfoFrom(first.State.String(), first.Current, first.Full, first.Design, first.ChargeRate, first.Voltage)
	h.addBatteryDetails(info, index)
	return info, nil
}

// batterySupplyName returns the power_supply entry of the index-th battery,
// counted the way battery.GetAll enumerates them: battery-type entries in
// name order.
func (h *HostSource) batterySupplyName(index int) string {
	entries, err := os.ReadDir(filepath.Join(h.sysfsRoot, "class", "power_supply"))
	if err != nil {
		return ""
	}
	n := 0
	for _, e := range entries {
		if h.readSysfs("class", "power_supply", e.Name(), "type") != "Battery" {
			continue
		}
		if n == index {
			return e.Name()
		}
		n++
	}
	return ""
}

// addBatteryDetails fills the fields distatus/battery does not report from
// sysfs.
func (h *HostSource) addBatteryDetails(info *BatteryInfo, index int) {
	name := h.batterySupplyName(index)
	if name == "" {
		return
	}
	info.Manufacturer = known(h.readSysfs("class", "power_supply", name, "manufacturer"))
	info.Model = known(h.readSysfs("class", "power_supply", name, "model_name"))
	if cycles, ok := h.readSysfsInt("class", "power_supply", name, "cycle_count"); ok && cycles > 0 {
		info.CycleCount = Ptr(int(cycles))
	}
}

// batteryInfoFrom derives the reported battery fields. Capacities are mWh,
// rate is mW, the remaining time is in minutes.
func batteryInfoFrom(state string, current, full, design, rate, voltage float64) *BatteryInfo {
	state = strings.ToLower(state)
	info := &BatteryInfo{
		HasBattery: true,
		IsCharging: state == "charging",
	}
	info.ACConnected = info.IsCharging || state == "full" || state == "idle" || state == "not charging"

	if current > 0 {
		info.CurrentCapacity = Ptr(current)
	}
	if full > 0 {
		info.MaxCapacity = Ptr(full)
		info.Percent = Ptr(math.Min(100, math.Round(current/full*1000)/10))
	}
	if design > 0 {
		info.DesignedCapacity = Ptr(design)
		if full > 0 {
			info.CapacityHealth = Ptr(math.Round(full/design*1000) / 10)
		}
	}
	if voltage > 0 {
		info.Voltage = Ptr(voltage)
	}

	if rate > 0 {
		switch {
		case info.IsCharging && full > current:
			info.TimeRemaining = Ptr(math.Round((full - current) / rate * 60))
		case state == "discharging":
			info.TimeRemaining = Ptr(math.Round(current / rate * 60))
		}
	}
	return info
}
