package telemetry

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/jaypipes/ghw"
)

const nvidiaQuery = "--query-gpu=index,name,utilization.gpu,memory.used,memory.total,temperature.gpu"

// nvidiaStats is one row of nvidia-smi output.
type nvidiaStats struct {
	Index       int
	Name        string
	Utilization *float64
	MemoryUsed  *uint64
	MemoryTotal *uint64
	Temperature *float64
}

// Graphics lists graphics adapters. Live utilization, temperature and VRAM
// usage are merged in from nvidia-smi when it is available.
func (h *HostSource) Graphics(ctx context.Context) ([]GPUController, error) {
	controllers, pciErr := h.pciGraphics(ctx)

	stats, smiErr := h.queryNvidiaSMI(ctx)
	if smiErr != nil {
		h.logger.Debugw("nvidia-smi unavailable", "error", smiErr)
	}

	if pciErr != nil && len(stats) == 0 {
		return nil, fmt.Errorf("graphics: %w", pciErr)
	}
	return mergeNvidiaStats(controllers, stats), nil
}

func (h *HostSource) pciGraphics(ctx context.Context) ([]GPUController, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := ghw.GPU(ghwQuiet())
	if err != nil {
		return nil, err
	}

	controllers := make([]GPUController, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		if card == nil {
			continue
		}
		controller := GPUController{Bus: card.Address}
		if dev := card.DeviceInfo; dev != nil {
			if dev.Vendor != nil {
				controller.Vendor = known(dev.Vendor.Name)
			}
			if dev.Product != nil {
				controller.Model = known(dev.Product.Name)
			}
		}
		controllers = append(controllers, controller)
	}
	return controllers, nil
}

func (h *HostSource) queryNvidiaSMI(ctx context.Context) ([]nvidiaStats, error) {
	if h.nvidiaSMI == "" {
		return nil, fmt.Errorf("nvidia-smi disabled")
	}
	cmd := exec.CommandContext(ctx, h.nvidiaSMI, nvidiaQuery, "--format=csv,noheader,nounits")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi not available: %w", err)
	}
	return parseNvidiaSMI(string(output))
}

// parseNvidiaSMI parses "index, name, util, mem.used, mem.total, temp" rows.
// Fields reported as "[N/A]" stay absent.
func parseNvidiaSMI(output string) ([]nvidiaStats, error) {
	var result []nvidiaStats
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) < 6 {
			return nil, fmt.Errorf("unexpected nvidia-smi output format: %q", line)
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}

		index, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("unexpected nvidia-smi gpu index %q", fields[0])
		}
		row := nvidiaStats{Index: index, Name: known(fields[1])}
		if v, err := strconv.ParseFloat(fields[2], 64); err == nil {
			row.Utilization = Ptr(v)
		}
		if v, err := strconv.ParseUint(fields[3], 10, 64); err == nil {
			row.MemoryUsed = Ptr(v)
		}
		if v, err := strconv.ParseUint(fields[4], 10, 64); err == nil {
			row.MemoryTotal = Ptr(v)
		}
		if v, err := strconv.ParseFloat(fields[5], 64); err == nil {
			row.Temperature = Ptr(v)
		}
		result = append(result, row)
	}
	return result, nil
}

// mergeNvidiaStats attaches nvidia-smi rows to NVIDIA PCI controllers in
// enumeration order. Rows without a matching controller become controllers
// of their own.
func mergeNvidiaStats(controllers []GPUController, stats []nvidiaStats) []GPUController {
	next := 0
	for i := range controllers {
		if next >= len(stats) {
			break
		}
		if !strings.Contains(strings.ToLower(controllers[i].Vendor), "nvidia") {
			continue
		}
		applyNvidiaStats(&controllers[i], stats[next])
		next++
	}
	for ; next < len(stats); next++ {
		c := GPUController{Vendor: "NVIDIA"}
		applyNvidiaStats(&c, stats[next])
		controllers = append(controllers, c)
	}
	return controllers
}

func applyNvidiaStats(c *GPUController, s nvidiaStats) {
	if s.Name != "" {
		c.Model = s.Name
	}
	c.UtilizationGPU = s.Utilization
	c.TemperatureGPU = s.Temperature
	c.MemoryUsed = s.MemoryUsed
	c.MemoryTotal = s.MemoryTotal
	if s.MemoryTotal != nil {
		c.VRAM = s.MemoryTotal
	}
}
