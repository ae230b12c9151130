package telemetry

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/shirou/gopsutil/v3/net"
)

// NetworkInterfaces describes every interface with its addresses and link
// properties.
func (h *HostSource) NetworkInterfaces(ctx context.Context) ([]NetInterface, error) {
	interfaces, err := net.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("network interfaces: %w", err)
	}

	result := make([]NetInterface, 0, len(interfaces))
	for _, iface := range interfaces {
		nic := NetInterface{
			Iface:    iface.Name,
			MAC:      iface.HardwareAddr,
			Internal: hasFlag(iface.Flags, "loopback"),
		}
		if iface.MTU > 0 {
			nic.MTU = Ptr(iface.MTU)
		}
		for _, addr := range iface.Addrs {
			prefix, err := netip.ParsePrefix(addr.Addr)
			if err != nil {
				continue
			}
			ip := prefix.Addr()
			switch {
			case ip.Is4() && nic.IP4 == "":
				nic.IP4 = ip.String()
			case ip.Is6() && nic.IP6 == "":
				nic.IP6 = ip.String()
			}
		}

		nic.OperState = h.operState(iface.Name, iface.Flags)
		nic.Type = h.linkType(iface.Name, nic.Internal)
		if speed, ok := h.readSysfsInt("class", "net", iface.Name, "speed"); ok && speed > 0 {
			nic.Speed = Ptr(float64(speed))
		}

		result = append(result, nic)
	}
	return result, nil
}

// NetworkStats returns per-interface counters and the transfer rate since the
// previous call on this source.
func (h *HostSource) NetworkStats(ctx context.Context) ([]NetStats, error) {
	counters, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("network counters: %w", err)
	}
	now := time.Now()

	h.netMu.Lock()
	prev, prevTime := h.prevNet, h.prevNetTime
	h.prevNet = make(map[string]net.IOCountersStat, len(counters))
	for _, c := range counters {
		h.prevNet[c.Name] = c
	}
	h.prevNetTime = now
	h.netMu.Unlock()

	return netStatsFromCounters(counters, prev, now.Sub(prevTime), h.operState), nil
}

func netStatsFromCounters(counters []net.IOCountersStat, prev map[string]net.IOCountersStat, elapsed time.Duration, state func(string, []string) string) []NetStats {
	result := make([]NetStats, 0, len(counters))
	for _, c := range counters {
		stats := NetStats{
			Iface:     c.Name,
			OperState: state(c.Name, nil),
			RxBytes:   Ptr(c.BytesRecv),
			TxBytes:   Ptr(c.BytesSent),
		}
		if p, ok := prev[c.Name]; ok && elapsed > 0 {
			seconds := elapsed.Seconds()
			stats.Ms = Ptr(elapsed.Milliseconds())
			// 카운터가 리셋된 경우 속도를 계산하지 않음
			if c.BytesRecv >= p.BytesRecv {
				stats.RxSec = Ptr(float64(c.BytesRecv-p.BytesRecv) / seconds)
			}
			if c.BytesSent >= p.BytesSent {
				stats.TxSec = Ptr(float64(c.BytesSent-p.BytesSent) / seconds)
			}
		}
		result = append(result, stats)
	}
	return result
}

func (h *HostSource) operState(name string, flags []string) string {
	if state := h.readSysfs("class", "net", name, "operstate"); state != "" && state != "unknown" {
		return state
	}
	if flags == nil {
		return "unknown"
	}
	if hasFlag(flags, "up") {
		return "up"
	}
	return "down"
}

func (h *HostSource) linkType(name string, loopback bool) string {
	switch {
	case loopback:
		return "virtual"
	case h.hasSysfs("class", "net", name, "wireless"):
		return "wireless"
	case h.hasSysfs("class", "net", name, "device"):
		return "wired"
	case h.readSysfs("class", "net", name, "type") != "":
		return "virtual"
	}
	return ""
}

func hasFlag(flags []string, want string) bool {
	for _, f := range flags {
		if f == want {
			return true
		}
	}
	return false
}
