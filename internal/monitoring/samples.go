package monitoring

import (
	"fmt"
	"math"
)

// Sample is one numeric reading extracted from a snapshot.
type Sample struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
}

// Samples flattens the numeric readings of the snapshot into named samples
// for history storage and metrics export. Absent values produce no sample.
func (s *Snapshot) Samples() []Sample {
	var samples []Sample
	add := func(metric string, v *float64) {
		if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
			return
		}
		samples = append(samples, Sample{Metric: metric, Value: *v})
	}

	if s.CPU != nil {
		if load := s.CPU.Load; load != nil {
			add("cpu.load", load.CurrentLoad)
			for i, core := range load.Cpus {
				add(fmt.Sprintf("cpu.core.%d", i), core.Load)
			}
		}
		if temp := s.CPU.Temperature; temp != nil {
			add("cpu.temperature", temp.Main)
		}
	}

	if s.Memory != nil && s.Memory.Mem != nil {
		mem := s.Memory.Mem
		if mem.Total != nil && mem.Used != nil && *mem.Total > 0 {
			pct := roundTenth(float64(*mem.Used) / float64(*mem.Total) * 100)
			add("memory.used_percent", &pct)
		}
	}

	if s.Disk != nil {
		for _, fs := range s.Disk.FileSystems {
			if fs.Mount == "" {
				continue
			}
			use := fs.Use
			if use == nil && fs.Size != nil && fs.Used != nil && *fs.Size > 0 {
				pct := roundTenth(float64(*fs.Used) / float64(*fs.Size) * 100)
				use = &pct
			}
			add(fmt.Sprintf("disk.%s.used_percent", fs.Mount), use)
		}
	}

	if s.GPU != nil {
		for i, gpu := range s.GPU.Controllers {
			add(fmt.Sprintf("gpu.%d.utilization", i), gpu.UtilizationGPU)
		}
	}

	if s.Network != nil {
		for _, st := range s.Network.Stats {
			add(fmt.Sprintf("net.%s.rx_sec", st.Iface), st.RxSec)
			add(fmt.Sprintf("net.%s.tx_sec", st.Iface), st.TxSec)
		}
	}

	if s.Battery != nil && s.Battery.Battery != nil && s.Battery.Battery.HasBattery {
		add("battery.percent", s.Battery.Battery.Percent)
	}

	return samples
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
