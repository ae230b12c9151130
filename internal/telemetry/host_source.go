package telemetry

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/digitalocean/go-smbios/smbios"
	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"
)

// HostSource implements Source for the local machine on top of gopsutil,
// ghw, go-smbios, distatus/battery and nvidia-smi.
type HostSource struct {
	logger     *zap.SugaredLogger
	loadSample time.Duration
	sysfsRoot  string
	nvidiaSMI  string

	// SMBIOS 테이블 읽기 (테스트에서 교체)
	smbiosTables func() ([]*smbios.Structure, error)

	// 네트워크 속도 계산을 위해 이전 카운터 저장
	netMu       sync.Mutex
	prevNet     map[string]net.IOCountersStat
	prevNetTime time.Time
}

// HostOption configures a HostSource.
type HostOption func(*HostSource)

// WithLogger sets the logger used for hardware read diagnostics.
func WithLogger(logger *zap.SugaredLogger) HostOption {
	return func(h *HostSource) { h.logger = logger }
}

// WithLoadSample sets how long CurrentLoad samples CPU counters.
func WithLoadSample(d time.Duration) HostOption {
	return func(h *HostSource) {
		if d > 0 {
			h.loadSample = d
		}
	}
}

// WithSysfsRoot overrides the /sys mount point (tests, containers).
func WithSysfsRoot(root string) HostOption {
	return func(h *HostSource) { h.sysfsRoot = root }
}

// WithNvidiaSMI sets the nvidia-smi executable; empty disables it.
func WithNvidiaSMI(path string) HostOption {
	return func(h *HostSource) { h.nvidiaSMI = path }
}

// NewHostSource creates a Source reading the local host.
func NewHostSource(opts ...HostOption) *HostSource {
	h := &HostSource{
		logger:     zap.NewNop().Sugar(),
		loadSample: 200 * time.Millisecond,
		sysfsRoot:  "/sys",
		nvidiaSMI:  "nvidia-smi",
	}
	h.smbiosTables = readSMBIOS
	for _, opt := range opts {
		opt(h)
	}
	return h
}

var _ Source = (*HostSource)(nil)

// readSysfs returns the trimmed content of a sysfs attribute, or "" when it
// cannot be read.
func (h *HostSource) readSysfs(parts ...string) string {
	data, err := os.ReadFile(filepath.Join(append([]string{h.sysfsRoot}, parts...)...))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (h *HostSource) hasSysfs(parts ...string) bool {
	_, err := os.Stat(filepath.Join(append([]string{h.sysfsRoot}, parts...)...))
	return err == nil
}

func (h *HostSource) readSysfsInt(parts ...string) (int64, bool) {
	s := h.readSysfs(parts...)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ghwQuiet keeps ghw from printing its own warnings to stderr; failures are
// returned as errors and logged by the caller.
func ghwQuiet() *ghw.WithOption {
	return ghw.WithDisableWarnings()
}

// known drops the placeholder values hardware libraries use for unreadable
// fields.
func known(s string) string {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "unknown", "none", "not specified", "to be filled by o.e.m.", "default string", "n/a", "[n/a]":
		return ""
	}
	return s
}
