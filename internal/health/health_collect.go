package health

import (
	"fmt"
	"os"
	"runtime"
	"time"
)

// Collect returns a health snapshot for the current process.
func Collect(opts Options) Snapshot {
	opts = opts.normalize()
	now := time.Now()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	zoneName, zoneOffsetSeconds := now.Zone()

	s := Snapshot{
		Status:     "healthy",
		Goroutines: runtime.NumGoroutine(),
		Memory: MemoryInfo{
			AllocMB:      float64(mem.Alloc) / 1024 / 1024,
			TotalAllocMB: float64(mem.TotalAlloc) / 1024 / 1024,
			SysMB:        float64(mem.Sys) / 1024 / 1024,
			NumGC:        mem.NumGC,
		},
		Runtime: RuntimeInfo{
			Version: runtime.Version(),
			OS:      runtime.GOOS,
			Arch:    runtime.GOARCH,
			CPUs:    runtime.NumCPU(),
		},
		Time: TimeInfo{
			Local:     now.Format(time.RFC3339),
			UTC:       now.UTC().Format(time.RFC3339),
			Weekday:   now.Weekday().String(),
			Timezone:  zoneName,
			UTCOffset: formatUTCOffset(zoneOffsetSeconds),
			Unix:      now.Unix(),
		},
		Timestamp: now.Format(time.RFC3339),
	}

	if opts.ConfigDir != "" || opts.ConfigFile != "" {
		s.Paths = &PathsInfo{ConfigDir: opts.ConfigDir, ConfigFile: opts.ConfigFile}
	}
	if opts.StoreType != "" {
		s.Storage = inspectStore(opts.StoreType, opts.StorePath)
	}
	if opts.Bot != nil {
		bot := *opts.Bot
		s.Bot = &bot
	}
	if opts.IncludeCron || len(opts.CronJobs) > 0 {
		s.Cron = &CronInfo{Jobs: append([]CronJobInfo(nil), opts.CronJobs...)}
	}
	return s
}

func inspectStore(kind, path string) *StoreInfo {
	info := &StoreInfo{Type: kind, Path: path}
	if path == "" {
		return info
	}
	st, err := os.Stat(path)
	if err != nil {
		return info
	}
	info.Exists = true
	info.FileSizeBytes = st.Size()
	info.UpdatedAt = st.ModTime().Format(time.RFC3339)
	return info
}

func formatUTCOffset(offsetSeconds int) string {
	sign := "+"
	if offsetSeconds < 0 {
		sign = "-"
		offsetSeconds = -offsetSeconds
	}
	hours := offsetSeconds / 3600
	minutes := (offsetSeconds % 3600) / 60
	return fmt.Sprintf("%s%02d:%02d", sign, hours, minutes)
}
