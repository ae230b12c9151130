package telemetry

import (
	"context"
	"fmt"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/disk"
)

// DiskLayout lists physical block devices.
func (h *HostSource) DiskLayout(ctx context.Context) ([]DiskDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := ghw.Block(ghwQuiet())
	if err != nil {
		return nil, fmt.Errorf("block devices: %w", err)
	}

	devices := make([]DiskDevice, 0, len(info.Disks))
	for _, d := range info.Disks {
		if d == nil || isVirtualBlockDevice(d.Name) {
			continue
		}
		device := DiskDevice{
			Name:          known(d.Model),
			Type:          known(d.DriveType.String()),
			Vendor:        known(d.Vendor),
			InterfaceType: known(d.StorageController.String()),
			SerialNum:     known(d.SerialNumber),
			Removable:     d.IsRemovable,
		}
		if device.Name == "" {
			device.Name = d.Name
		}
		if d.SizeBytes > 0 {
			device.Size = Ptr(d.SizeBytes)
		}
		devices = append(devices, device)
	}
	return devices, nil
}

func isVirtualBlockDevice(name string) bool {
	for _, prefix := range []string{"loop", "ram", "zram", "dm-", "md"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// FsSize returns usage for every mounted physical filesystem.
func (h *HostSource) FsSize(ctx context.Context) ([]FileSystem, error) {
	partitions, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	seen := make(map[string]bool, len(partitions))
	result := make([]FileSystem, 0, len(partitions))
	for _, p := range partitions {
		if seen[p.Mountpoint] {
			continue
		}
		seen[p.Mountpoint] = true

		usage, err := disk.UsageWithContext(ctx, p.Mountpoint)
		if err != nil {
			h.logger.Debugw("disk usage unavailable", "mount", p.Mountpoint, "error", err)
			continue
		}

		result = append(result, FileSystem{
			FS:        p.Device,
			Type:      p.Fstype,
			Mount:     p.Mountpoint,
			Size:      Ptr(usage.Total),
			Used:      Ptr(usage.Used),
			Available: Ptr(usage.Free),
			Use:       Ptr(usage.UsedPercent),
		})
	}
	return result, nil
}
