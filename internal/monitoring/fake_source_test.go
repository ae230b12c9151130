package monitoring

import (
	"context"
	"sync/atomic"

	"sysdash/internal/telemetry"
)

// fakeSource returns canned records. fail makes the named query return an
// error, panics makes it panic and block makes it wait for ctx.
type fakeSource struct {
	fail   map[string]error
	panics map[string]bool
	block  map[string]bool
	calls  atomic.Int64
}

func newFakeSource() *fakeSource {
	return &fakeSource{fail: map[string]error{}, panics: map[string]bool{}, block: map[string]bool{}}
}

func (f *fakeSource) check(ctx context.Context, op string) error {
	f.calls.Add(1)
	if f.panics[op] {
		panic(op + " exploded")
	}
	if f.block[op] {
		<-ctx.Done()
		return ctx.Err()
	}
	return f.fail[op]
}

func (f *fakeSource) CPU(ctx context.Context) (*telemetry.CPUInfo, error) {
	if err := f.check(ctx, "cpu"); err != nil {
		return nil, err
	}
	return &telemetry.CPUInfo{Manufacturer: "Intel", Brand: "Core i7-9700K", Cores: telemetry.Ptr(8), PhysicalCores: telemetry.Ptr(8), Speed: telemetry.Ptr(3.6)}, nil
}

func (f *fakeSource) CurrentLoad(ctx context.Context) (*telemetry.CPULoad, error) {
	if err := f.check(ctx, "currentLoad"); err != nil {
		return nil, err
	}
	return &telemetry.CPULoad{
		CurrentLoad: telemetry.Ptr(25.0),
		Cpus:        []telemetry.CoreLoad{{Load: telemetry.Ptr(20.0)}, {Load: telemetry.Ptr(30.0)}},
	}, nil
}

func (f *fakeSource) CPUTemperature(ctx context.Context) (*telemetry.CPUTemperature, error) {
	if err := f.check(ctx, "cpuTemperature"); err != nil {
		return nil, err
	}
	return &telemetry.CPUTemperature{Main: telemetry.Ptr(48.0), Max: telemetry.Ptr(55.0)}, nil
}

func (f *fakeSource) Mem(ctx context.Context) (*telemetry.MemInfo, error) {
	if err := f.check(ctx, "mem"); err != nil {
		return nil, err
	}
	return &telemetry.MemInfo{Total: telemetry.Ptr(uint64(17179869184)), Used: telemetry.Ptr(uint64(8589934592))}, nil
}

func (f *fakeSource) MemLayout(ctx context.Context) ([]telemetry.MemModule, error) {
	if err := f.check(ctx, "memLayout"); err != nil {
		return nil, err
	}
	return []telemetry.MemModule{{Bank: "BANK 0", Size: telemetry.Ptr(uint64(8589934592)), Type: "DDR4"}}, nil
}

func (f *fakeSource) DiskLayout(ctx context.Context) ([]telemetry.DiskDevice, error) {
	if err := f.check(ctx, "diskLayout"); err != nil {
		return nil, err
	}
	return []telemetry.DiskDevice{{Name: "Samsung SSD 970", Type: "SSD", Size: telemetry.Ptr(uint64(500107862016))}}, nil
}

func (f *fakeSource) FsSize(ctx context.Context) ([]telemetry.FileSystem, error) {
	if err := f.check(ctx, "fsSize"); err != nil {
		return nil, err
	}
	return []telemetry.FileSystem{{
		FS: "/dev/nvme0n1p2", Mount: "/",
		Size: telemetry.Ptr(uint64(1000)), Used: telemetry.Ptr(uint64(250)),
	}}, nil
}

func (f *fakeSource) Graphics(ctx context.Context) ([]telemetry.GPUController, error) {
	if err := f.check(ctx, "graphics"); err != nil {
		return nil, err
	}
	return []telemetry.GPUController{{Vendor: "NVIDIA", Model: "RTX 3080", UtilizationGPU: telemetry.Ptr(12.0)}}, nil
}

func (f *fakeSource) NetworkInterfaces(ctx context.Context) ([]telemetry.NetInterface, error) {
	if err := f.check(ctx, "networkInterfaces"); err != nil {
		return nil, err
	}
	return []telemetry.NetInterface{{Iface: "eth0", Type: "wired", OperState: "up", IP4: "192.168.0.10"}}, nil
}

func (f *fakeSource) NetworkStats(ctx context.Context) ([]telemetry.NetStats, error) {
	if err := f.check(ctx, "networkStats"); err != nil {
		return nil, err
	}
	return []telemetry.NetStats{{Iface: "eth0", RxSec: telemetry.Ptr(1024.0), TxSec: telemetry.Ptr(512.0)}}, nil
}

func (f *fakeSource) System(ctx context.Context) (*telemetry.SystemInfo, error) {
	if err := f.check(ctx, "system"); err != nil {
		return nil, err
	}
	return &telemetry.SystemInfo{Manufacturer: "ASUSTeK", Model: "ROG"}, nil
}

func (f *fakeSource) BIOS(ctx context.Context) (*telemetry.BIOSInfo, error) {
	if err := f.check(ctx, "bios"); err != nil {
		return nil, err
	}
	return &telemetry.BIOSInfo{Vendor: "AMI", Version: "1.2"}, nil
}

func (f *fakeSource) Baseboard(ctx context.Context) (*telemetry.BaseboardInfo, error) {
	if err := f.check(ctx, "baseboard"); err != nil {
		return nil, err
	}
	return &telemetry.BaseboardInfo{Manufacturer: "ASUSTeK", Model: "Z390"}, nil
}

func (f *fakeSource) OSInfo(ctx context.Context) (*telemetry.OSInfo, error) {
	if err := f.check(ctx, "osInfo"); err != nil {
		return nil, err
	}
	return &telemetry.OSInfo{Platform: "linux", Distro: "Ubuntu", Hostname: "devbox"}, nil
}

func (f *fakeSource) Battery(ctx context.Context) (*telemetry.BatteryInfo, error) {
	if err := f.check(ctx, "battery"); err != nil {
		return nil, err
	}
	return &telemetry.BatteryInfo{HasBattery: true, Percent: telemetry.Ptr(80.0)}, nil
}

var _ telemetry.Source = (*fakeSource)(nil)
