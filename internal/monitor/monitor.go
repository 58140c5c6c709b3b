package monitor

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Snapshot is one point-in-time host resource reading.
// Params: cpu/memory/disk utilization, load averages, uptime.
// Returns: read-only metrics consumed by status and report rendering.
type Snapshot struct {
	CPUPercent  float64
	MemPercent  float64
	MemUsed     uint64
	MemTotal    uint64
	DiskPercent float64
	DiskUsed    uint64
	DiskFree    uint64
	DiskTotal   uint64
	Load1       float64
	Load5       float64
	Load15      float64
	Uptime      time.Duration
}

// Monitor supplies host resource snapshots.
// Params: context for the sampling window.
// Returns: one snapshot per call; consumed read-only.
type Monitor interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// ProcMonitor reads host metrics from procfs and statfs.
// Params: mount point for disk usage and CPU sampling interval.
// Returns: Monitor implementation for Linux hosts.
type ProcMonitor struct {
	root     string
	interval time.Duration
}

// NewProcMonitor creates a procfs-backed monitor.
// Params: disk mount point ("/" when empty) and CPU sample interval.
// Returns: initialized monitor.
func NewProcMonitor(root string, interval time.Duration) *ProcMonitor {
	if root == "" {
		root = "/"
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &ProcMonitor{root: root, interval: interval}
}

// Snapshot samples the host once.
// Params: context bounding the CPU sample window.
// Returns: populated snapshot or first read error.
func (m *ProcMonitor) Snapshot(ctx context.Context) (Snapshot, error) {
	var snapshot Snapshot

	cpu, err := m.sampleCPU(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snapshot.CPUPercent = cpu

	if err := readMemory(&snapshot); err != nil {
		return Snapshot{}, err
	}
	if err := readDisk(m.root, &snapshot); err != nil {
		return Snapshot{}, err
	}
	if err := readLoad(&snapshot); err != nil {
		return Snapshot{}, err
	}
	if err := readUptime(&snapshot); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

// sampleCPU computes busy percentage over one interval.
// Params: context; sampling suspends between two /proc/stat reads.
// Returns: aggregate busy percent.
func (m *ProcMonitor) sampleCPU(ctx context.Context) (float64, error) {
	busyBefore, totalBefore, err := readCPUTicks()
	if err != nil {
		return 0, err
	}

	timer := time.NewTimer(m.interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	busyAfter, totalAfter, err := readCPUTicks()
	if err != nil {
		return 0, err
	}
	totalDelta := totalAfter - totalBefore
	if totalDelta == 0 {
		return 0, nil
	}
	return 100 * float64(busyAfter-busyBefore) / float64(totalDelta), nil
}

// readCPUTicks parses the aggregate cpu line of /proc/stat.
// Params: none.
// Returns: busy and total tick counters.
func readCPUTicks() (uint64, uint64, error) {
	raw, err := os.ReadFile("/proc/stat")
	if err != nil {
		return 0, 0, fmt.Errorf("read /proc/stat: %w", err)
	}
	for _, line := range strings.Split(string(raw), "\n") {
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)[1:]
		var total, idle uint64
		for i, field := range fields {
			value, err := strconv.ParseUint(field, 10, 64)
			if err != nil {
				return 0, 0, fmt.Errorf("parse /proc/stat field %q: %w", field, err)
			}
			total += value
			if i == 3 || i == 4 { // idle + iowait
				idle += value
			}
		}
		return total - idle, total, nil
	}
	return 0, 0, fmt.Errorf("/proc/stat has no aggregate cpu line")
}

// readMemory fills memory fields from /proc/meminfo.
// Params: snapshot to populate.
// Returns: read/parse error.
func readMemory(snapshot *Snapshot) error {
	raw, err := os.ReadFile("/proc/meminfo")
	if err != nil {
		return fmt.Errorf("read /proc/meminfo: %w", err)
	}
	values := make(map[string]uint64)
	for _, line := range strings.Split(string(raw), "\n") {
		name, rest, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		kb, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			continue
		}
		values[name] = kb * 1024
	}

	total := values["MemTotal"]
	available := values["MemAvailable"]
	if total == 0 {
		return fmt.Errorf("/proc/meminfo has no MemTotal")
	}
	snapshot.MemTotal = total
	snapshot.MemUsed = total - available
	snapshot.MemPercent = 100 * float64(total-available) / float64(total)
	return nil
}

// readDisk fills disk fields via statfs.
// Params: mount point and snapshot to populate.
// Returns: statfs error.
func readDisk(root string, snapshot *Snapshot) error {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(root, &stat); err != nil {
		return fmt.Errorf("statfs %q: %w", root, err)
	}
	blockSize := uint64(stat.Bsize)
	total := stat.Blocks * blockSize
	free := stat.Bavail * blockSize
	used := total - stat.Bfree*blockSize

	snapshot.DiskTotal = total
	snapshot.DiskFree = free
	snapshot.DiskUsed = used
	if used+free > 0 {
		snapshot.DiskPercent = 100 * float64(used) / float64(used+free)
	}
	return nil
}

// readLoad fills load averages from /proc/loadavg.
// Params: snapshot to populate.
// Returns: read/parse error.
func readLoad(snapshot *Snapshot) error {
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return fmt.Errorf("read /proc/loadavg: %w", err)
	}
	fields := strings.Fields(string(raw))
	if len(fields) < 3 {
		return fmt.Errorf("/proc/loadavg is malformed")
	}
	for i, dst := range []*float64{&snapshot.Load1, &snapshot.Load5, &snapshot.Load15} {
		value, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return fmt.Errorf("parse loadavg field %q: %w", fields[i], err)
		}
		*dst = value
	}
	return nil
}

// readUptime fills host uptime from /proc/uptime.
// Params: snapshot to populate.
// Returns: read/parse error.
func readUptime(snapshot *Snapshot) error {
	raw, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return fmt.Errorf("read /proc/uptime: %w", err)
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return fmt.Errorf("/proc/uptime is malformed")
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return fmt.Errorf("parse uptime %q: %w", fields[0], err)
	}
	snapshot.Uptime = time.Duration(seconds * float64(time.Second))
	return nil
}
