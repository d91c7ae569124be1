// Package diagnostics probes the host environment for the doctor
// command: resource headroom, disk space for checkpoints and exports,
// and GPU inventory as a local-model capacity hint.
package diagnostics

import (
	"strings"
	"sync"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
)

// GPUInfo describes one detected GPU (best-effort).
type GPUInfo struct {
	Vendor string `json:"vendor,omitempty"`
	Name   string `json:"name"`
}

// SystemReport holds a point-in-time snapshot of host resources.
type SystemReport struct {
	CPUModel   string  `json:"cpu_model"`
	CPUCores   int     `json:"cpu_cores"`
	CPUThreads int     `json:"cpu_threads"`

	MemTotalMB float64 `json:"mem_total_mb"`
	MemUsedMB  float64 `json:"mem_used_mb"`
	MemPercent float64 `json:"mem_percent"`

	DiskPath    string  `json:"disk_path"`
	DiskTotalGB float64 `json:"disk_total_gb"`
	DiskFreeGB  float64 `json:"disk_free_gb"`
	DiskPercent float64 `json:"disk_percent"`

	LoadAvg1  float64 `json:"load_avg_1"`
	LoadAvg5  float64 `json:"load_avg_5"`
	LoadAvg15 float64 `json:"load_avg_15"`

	GPUs []GPUInfo `json:"gpus,omitempty"`
}

// Probe collects system reports. Hardware identity is cached after the
// first call; usage numbers are read fresh every time.
type Probe struct {
	mu sync.Mutex

	infoCollected bool
	cpuModel      string
	cpuCores      int
	cpuThreads    int
	gpus          []GPUInfo
}

// NewProbe creates a probe.
func NewProbe() *Probe {
	return &Probe{}
}

// Collect gathers a snapshot. Individual collectors fail soft: a probe
// that cannot read one subsystem still reports the others.
func (p *Probe) Collect(diskPath string) SystemReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	report := SystemReport{DiskPath: diskPath}
	p.collectHardware(&report)
	collectMemory(&report)
	collectDisk(&report, diskPath)
	collectLoad(&report)
	report.GPUs = append([]GPUInfo(nil), p.gpus...)
	return report
}

func (p *Probe) collectHardware(report *SystemReport) {
	if !p.infoCollected {
		if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
			p.cpuModel = strings.TrimSpace(infos[0].ModelName)
		}
		if cores, err := cpu.Counts(false); err == nil && cores > 0 {
			p.cpuCores = cores
		}
		if threads, err := cpu.Counts(true); err == nil && threads > 0 {
			p.cpuThreads = threads
		}
		p.gpus = inventoryGPUs()
		p.infoCollected = true
	}
	report.CPUModel = p.cpuModel
	report.CPUCores = p.cpuCores
	report.CPUThreads = p.cpuThreads
}

func collectMemory(report *SystemReport) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return
	}
	report.MemTotalMB = float64(vm.Total) / 1024 / 1024
	report.MemUsedMB = float64(vm.Used) / 1024 / 1024
	report.MemPercent = vm.UsedPercent
}

func collectDisk(report *SystemReport, path string) {
	if path == "" {
		path = "/"
	}
	usage, err := disk.Usage(path)
	if err != nil {
		return
	}
	report.DiskTotalGB = float64(usage.Total) / 1024 / 1024 / 1024
	report.DiskFreeGB = float64(usage.Free) / 1024 / 1024 / 1024
	report.DiskPercent = usage.UsedPercent
}

func collectLoad(report *SystemReport) {
	avg, err := load.Avg()
	if err != nil {
		return
	}
	report.LoadAvg1 = avg.Load1
	report.LoadAvg5 = avg.Load5
	report.LoadAvg15 = avg.Load15
}

// inventoryGPUs lists GPUs via ghw. Purely informational; hosts
// without PCI access just report none.
func inventoryGPUs() []GPUInfo {
	info, err := ghw.GPU()
	if err != nil || info == nil {
		return nil
	}
	gpus := make([]GPUInfo, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		gpu := GPUInfo{Name: "unknown"}
		if card.DeviceInfo != nil {
			if card.DeviceInfo.Product != nil {
				gpu.Name = card.DeviceInfo.Product.Name
			}
			if card.DeviceInfo.Vendor != nil {
				gpu.Vendor = card.DeviceInfo.Vendor.Name
			}
		}
		gpus = append(gpus, gpu)
	}
	return gpus
}
