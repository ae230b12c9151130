package telemetry

import (
	"context"
)

// Source is the query contract of a system-information provider. Every
// method is independent and may be called concurrently with the others.
type Source interface {
	CPU(ctx context.Context) (*CPUInfo, error)
	CurrentLoad(ctx context.Context) (*CPULoad, error)
	CPUTemperature(ctx context.Context) (*CPUTemperature, error)

	Mem(ctx context.Context) (*MemInfo, error)
	MemLayout(ctx context.Context) ([]MemModule, error)

	DiskLayout(ctx context.Context) ([]DiskDevice, error)
	FsSize(ctx context.Context) ([]FileSystem, error)

	Graphics(ctx context.Context) ([]GPUController, error)

	NetworkInterfaces(ctx context.Context) ([]NetInterface, error)
	NetworkStats(ctx context.Context) ([]NetStats, error)

	System(ctx context.Context) (*SystemInfo, error)
	BIOS(ctx context.Context) (*BIOSInfo, error)
	Baseboard(ctx context.Context) (*BaseboardInfo, error)
	OSInfo(ctx context.Context) (*OSInfo, error)

	Battery(ctx context.Context) (*BatteryInfo, error)
}
