package telemetry

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/digitalocean/go-smbios/smbios"
	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/mem"
)

// Mem returns physical and swap memory usage.
func (h *HostSource) Mem(ctx context.Context) (*MemInfo, error) {
	virtual, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}

	result := &MemInfo{
		Total:     Ptr(virtual.Total),
		Used:      Ptr(virtual.Used),
		Free:      Ptr(virtual.Free),
		Available: Ptr(virtual.Available),
	}
	if virtual.Active > 0 {
		result.Active = Ptr(virtual.Active)
	}

	// 스왑 조회 실패는 전체 실패로 보지 않음
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		result.SwapTotal = Ptr(swap.Total)
		result.SwapUsed = Ptr(swap.Used)
	} else {
		h.logger.Debugw("swap memory unavailable", "error", err)
	}

	return result, nil
}

// MemLayout lists installed memory modules. SMBIOS memory device records
// give type, clock and voltage; when the tables cannot be read (usually
// without root) ghw's inventory is used instead.
func (h *HostSource) MemLayout(ctx context.Context) ([]MemModule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	structures, err := h.smbiosTables()
	if err == nil {
		if modules := memModulesFromSMBIOS(structures); len(modules) > 0 {
			return modules, nil
		}
	} else {
		h.logger.Debugw("smbios tables unavailable, using ghw", "error", err)
	}

	info, err := ghw.Memory(ghwQuiet())
	if err != nil {
		return nil, fmt.Errorf("memory layout: %w", err)
	}

	modules := make([]MemModule, 0, len(info.Modules))
	for _, m := range info.Modules {
		if m == nil {
			continue
		}
		module := MemModule{
			Bank:         known(m.Location),
			Manufacturer: known(m.Vendor),
			PartNum:      known(m.Label),
			SerialNum:    known(m.SerialNumber),
		}
		if m.SizeBytes > 0 {
			module.Size = Ptr(uint64(m.SizeBytes))
		}
		modules = append(modules, module)
	}
	return modules, nil
}

func readSMBIOS() ([]*smbios.Structure, error) {
	rc, _, err := smbios.Stream()
	if err != nil {
		return nil, fmt.Errorf("open smbios: %w", err)
	}
	defer rc.Close()

	structures, err := smbios.NewDecoder(rc).Decode()
	if err != nil {
		return nil, fmt.Errorf("decode smbios: %w", err)
	}
	return structures, nil
}

// smbiosMemoryDevice is the SMBIOS "Memory Device" structure type.
const smbiosMemoryDevice = 17

// SMBIOS memory type codes.
var smbiosMemoryTypes = map[byte]string{
	0x0F: "SDRAM",
	0x12: "DDR",
	0x13: "DDR2",
	0x18: "DDR3",
	0x1A: "DDR4",
	0x1B: "LPDDR",
	0x1C: "LPDDR2",
	0x1D: "LPDDR3",
	0x1E: "LPDDR4",
	0x1F: "Logical non-volatile device",
	0x20: "HBM",
	0x21: "HBM2",
	0x22: "DDR5",
	0x23: "LPDDR5",
	0x24: "HBM3",
}

// memModulesFromSMBIOS decodes the memory device records. Offsets are into
// the formatted area, which starts after the 4-byte structure header.
func memModulesFromSMBIOS(structures []*smbios.Structure) []MemModule {
	var modules []MemModule
	for _, s := range structures {
		if s == nil || s.Header.Type != smbiosMemoryDevice {
			continue
		}
		f := s.Formatted
		if len(f) < 19 {
			continue
		}

		str := func(off int) string {
			if off >= len(f) {
				return ""
			}
			idx := int(f[off])
			if idx == 0 || idx > len(s.Strings) {
				return ""
			}
			return known(s.Strings[idx-1])
		}
		word := func(off int) uint16 {
			if off+2 > len(f) {
				return 0
			}
			return binary.LittleEndian.Uint16(f[off:])
		}

		module := MemModule{
			Bank:         str(12),
			Type:         smbiosMemoryTypes[f[14]],
			Manufacturer: str(19),
			SerialNum:    str(20),
			PartNum:      str(22),
		}
		if module.Bank == "" {
			module.Bank = str(13)
		}

		switch size := word(8); {
		case size == 0 || size == 0xFFFF:
			// 빈 슬롯 또는 알 수 없음
		case size == 0x7FFF && len(f) >= 28:
			module.Size = Ptr(uint64(binary.LittleEndian.Uint32(f[24:])&0x7FFFFFFF) << 20)
		case size&0x8000 != 0:
			module.Size = Ptr(uint64(size&0x7FFF) << 10)
		default:
			module.Size = Ptr(uint64(size) << 20)
		}

		speed := word(28)
		if speed == 0 || speed == 0xFFFF {
			speed = word(17)
		}
		if speed != 0 && speed != 0xFFFF {
			module.ClockSpeed = Ptr(int(speed))
		}

		if mv := word(34); mv > 0 {
			module.Voltage = Ptr(float64(mv) / 1000)
		}
		modules = append(modules, module)
	}
	return modules
}
