package metrics

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"time"
)

var startedAt = time.Now()

// SysHealth is a snapshot of the process and its data directory.
type SysHealth struct {
	Uptime       time.Duration
	AllocMB      uint64
	TotalAllocMB uint64
	SysMB        uint64
	NumGC        uint32
	Goroutines   int
	DataDiskSize string
}

// GetSysHealth collects real-time health data.
func GetSysHealth(dataPath string) SysHealth {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return SysHealth{
		Uptime:       time.Since(startedAt).Round(time.Second),
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
		Goroutines:   runtime.NumGoroutine(),
		DataDiskSize: formatBytes(dirSize(dataPath)),
	}
}

// String renders the snapshot for chat and terminal output.
func (h SysHealth) String() string {
	return fmt.Sprintf("Uptime: %s\nMemory: %d MB alloc, %d MB sys\nGC runs: %d\nGoroutines: %d\nData on disk: %s",
		h.Uptime, h.AllocMB, h.SysMB, h.NumGC, h.Goroutines, h.DataDiskSize)
}

// dirSize sums regular files under path. path may also be a single file.
func dirSize(path string) int64 {
	var size int64
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return size
}

func formatBytes(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
