package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/host"
)

// System returns the machine vendor, model and serial.
func (h *HostSource) System(ctx context.Context) (*SystemInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	product, err := ghw.Product(ghwQuiet())
	if err != nil {
		return nil, fmt.Errorf("product info: %w", err)
	}
	return &SystemInfo{
		Manufacturer: known(product.Vendor),
		Model:        known(product.Name),
		Version:      known(product.Version),
		Serial:       known(product.SerialNumber),
		UUID:         known(product.UUID),
		SKU:          known(product.SKU),
	}, nil
}

// BIOS returns the firmware vendor and version.
func (h *HostSource) BIOS(ctx context.Context) (*BIOSInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := ghw.BIOS(ghwQuiet())
	if err != nil {
		return nil, fmt.Errorf("bios info: %w", err)
	}
	return &BIOSInfo{
		Vendor:      known(info.Vendor),
		Version:     known(info.Version),
		ReleaseDate: known(info.Date),
	}, nil
}

// Baseboard returns the mainboard vendor and model.
func (h *HostSource) Baseboard(ctx context.Context) (*BaseboardInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := ghw.Baseboard(ghwQuiet())
	if err != nil {
		return nil, fmt.Errorf("baseboard info: %w", err)
	}
	return &BaseboardInfo{
		Manufacturer: known(info.Vendor),
		Model:        known(info.Product),
		Version:      known(info.Version),
		Serial:       known(info.SerialNumber),
		AssetTag:     known(info.AssetTag),
	}, nil
}

// OSInfo returns the operating system, kernel and boot time.
func (h *HostSource) OSInfo(ctx context.Context) (*OSInfo, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}

	result := &OSInfo{
		Platform: info.OS,
		Distro:   info.Platform,
		Release:  info.PlatformVersion,
		Kernel:   info.KernelVersion,
		Arch:     info.KernelArch,
		Hostname: info.Hostname,
	}
	if info.BootTime > 0 {
		result.BootTime = Ptr(time.Unix(int64(info.BootTime), 0))
	}
	if info.Uptime > 0 {
		result.Uptime = Ptr(info.Uptime)
	}
	return result, nil
}
