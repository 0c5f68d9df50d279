package sysinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
)

// gpuQuery lists the nvidia-smi fields requested, in CSV column order.
const gpuQuery = "index,name,memory.total,memory.used,memory.free,utilization.gpu,temperature.gpu,power.draw"

// ComputerInfo is the snapshot stored in the computer field.
type ComputerInfo struct {
	ComputerName    string `json:"computer_name"`
	UserName        string `json:"user_name"`
	SystemName      string `json:"system_name"`
	SystemVersion   string `json:"system_version"`
	SystemRelease   string `json:"system_release"`
	SystemMachine   string `json:"system_machine"`
	SystemProcessor string `json:"system_processor"`
}

// CPUInfo is the snapshot stored in the cpu field.
type CPUInfo struct {
	Usage            string `json:"usage"`
	PhysicalCores    int    `json:"physical_cores"`
	LogicalCores     int    `json:"logical_cores"`
	CurrentFrequency string `json:"current_frequency,omitempty"`
}

// MemoryInfo is the snapshot stored in the memory field.
type MemoryInfo struct {
	Total   string `json:"total"`
	Used    string `json:"used"`
	Free    string `json:"free"`
	Percent string `json:"percent"`
}

// GPUInfo describes one device reported by nvidia-smi and is stored,
// one entry per device, in the gpu field.
type GPUInfo struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	MemoryTotal   string `json:"memory_total"`
	MemoryUsed    string `json:"memory_used"`
	MemoryFree    string `json:"memory_free"`
	MemoryPercent string `json:"memory_percent"`
	Temperature   string `json:"temperature"`
	Power         string `json:"power"`
	Utilization   string `json:"utilization"`
}

// HostInfo is the snapshot stored in the host field.
type HostInfo struct {
	ComputerName  string `json:"computer_name"`
	UserName      string `json:"user_name"`
	HostID        string `json:"host_id,omitempty"`
	UptimeSeconds uint64 `json:"uptime_seconds,omitempty"`
}

// LocalConfig configures the local collector.
type LocalConfig struct {
	// Timeout bounds each category probe.
	Timeout time.Duration

	// NvidiaSMIPath overrides the nvidia-smi binary looked up on PATH.
	NvidiaSMIPath string

	// Logger receives debug output for failed probes.
	Logger *zerolog.Logger
}

// Local collects telemetry from the machine the process runs on.
// Probe failures degrade to empty snapshots instead of failing the
// collection.
type Local struct {
	log       zerolog.Logger
	timeout   time.Duration
	nvidiaSMI string
}

// NewLocal creates a local collector.
func NewLocal(cfg LocalConfig) *Local {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.NvidiaSMIPath == "" {
		cfg.NvidiaSMIPath = "nvidia-smi"
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Local{
		log:       log,
		timeout:   cfg.Timeout,
		nvidiaSMI: cfg.NvidiaSMIPath,
	}
}

// Collect returns the JSON snapshot for a category. A machine without
// the hardware behind a category yields an empty string.
func (l *Local) Collect(ctx context.Context, category Category) (string, error) {
	if err := category.Validate(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var snapshot any
	switch category {
	case CategoryComputer:
		snapshot = l.computerInfo(ctx)
	case CategoryCPU:
		snapshot = l.cpuInfo(ctx)
	case CategoryMemory:
		snapshot = l.memoryInfo(ctx)
	case CategoryGPU:
		gpus := l.gpuInfo(ctx)
		if len(gpus) == 0 {
			return "", nil
		}
		snapshot = gpus
	case CategoryHost:
		snapshot = l.hostInfo(ctx)
	}

	data, err := json.MarshalIndent(snapshot, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s snapshot: %w", category, err)
	}
	return string(data), nil
}

func (l *Local) computerInfo(ctx context.Context) ComputerInfo {
	info := ComputerInfo{}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.ComputerName = h.Hostname
		info.SystemName = h.OS
		info.SystemVersion = h.PlatformVersion
		info.SystemRelease = h.KernelVersion
		info.SystemMachine = h.KernelArch
	} else {
		l.log.Debug().Err(err).Msg("failed to read host info")
		if name, err := os.Hostname(); err == nil {
			info.ComputerName = name
		}
	}

	if u, err := user.Current(); err == nil {
		info.UserName = u.Username
	} else {
		l.log.Debug().Err(err).Msg("failed to read current user")
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.SystemProcessor = cpus[0].ModelName
	}

	return info
}

func (l *Local) cpuInfo(ctx context.Context) CPUInfo {
	info := CPUInfo{}

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		info.Usage = fmt.Sprintf("%.1f%%", percents[0])
	} else if err != nil {
		l.log.Debug().Err(err).Msg("failed to read cpu usage")
	}

	if physical, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCores = physical
	}
	if logical, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.LogicalCores = logical
	}

	if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.CurrentFrequency = fmt.Sprintf("%.2f MHz", cpus[0].Mhz)
	}

	return info
}

func (l *Local) memoryInfo(ctx context.Context) MemoryInfo {
	v, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		l.log.Debug().Err(err).Msg("failed to read memory info")
		return MemoryInfo{}
	}

	return MemoryInfo{
		Total:   formatGB(v.Total),
		Used:    formatGB(v.Used),
		Free:    formatGB(v.Free),
		Percent: fmt.Sprintf("%.2f %%", v.UsedPercent),
	}
}

func (l *Local) gpuInfo(ctx context.Context) []GPUInfo {
	out, err := exec.CommandContext(ctx, l.nvidiaSMI,
		"--query-gpu="+gpuQuery,
		"--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		// No NVIDIA driver or binary on this machine.
		l.log.Debug().Err(err).Msg("failed to query nvidia-smi")
		return nil
	}

	gpus, err := parseGPUCSV(string(out))
	if err != nil {
		l.log.Debug().Err(err).Msg("failed to parse nvidia-smi output")
		return nil
	}
	return gpus
}

func (l *Local) hostInfo(ctx context.Context) HostInfo {
	info := HostInfo{}

	if h, err := host.InfoWithContext(ctx); err == nil {
		info.ComputerName = h.Hostname
		info.HostID = h.HostID
		info.UptimeSeconds = h.Uptime
	} else {
		l.log.Debug().Err(err).Msg("failed to read host info")
		if name, err := os.Hostname(); err == nil {
			info.ComputerName = name
		}
	}

	if u, err := user.Current(); err == nil {
		info.UserName = u.Username
	}

	return info
}

// parseGPUCSV parses nvidia-smi CSV output, one device per line.
func parseGPUCSV(out string) ([]GPUInfo, error) {
	var gpus []GPUInfo
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}

		parts := strings.Split(line, ",")
		if len(parts) != 8 {
			return nil, fmt.Errorf("unexpected nvidia-smi line: %q", line)
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		id, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse gpu index: %w", err)
		}

		memTotal := parseNumber(parts[2])
		memUsed := parseNumber(parts[3])
		memFree := parseNumber(parts[4])

		var memPercent float64
		if memTotal > 0 {
			memPercent = memUsed / memTotal * 100
		}

		gpus = append(gpus, GPUInfo{
			ID:            id,
			Name:          parts[1],
			MemoryTotal:   mibToGB(memTotal),
			MemoryUsed:    mibToGB(memUsed),
			MemoryFree:    mibToGB(memFree),
			MemoryPercent: fmt.Sprintf("%.2f %%", memPercent),
			Utilization:   fmt.Sprintf("%.2f %%", parseNumber(parts[5])),
			Temperature:   fmt.Sprintf("%.2f °C", parseNumber(parts[6])),
			Power:         fmt.Sprintf("%.2f W", parseNumber(parts[7])),
		})
	}
	return gpus, nil
}

// parseNumber reads a numeric nvidia-smi value, treating markers like
// [N/A] as zero.
func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatGB(n uint64) string {
	return fmt.Sprintf("%.2f GB", float64(n)/(1<<30))
}

func mibToGB(mib float64) string {
	return fmt.Sprintf("%.2f GB", mib/1024)
}
