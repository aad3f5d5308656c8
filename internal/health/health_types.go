package health

import "strings"

// Snapshot is a runtime health snapshot of the current process.
type Snapshot struct {
	Status     string      `json:"status"`
	Goroutines int         `json:"goroutines"`
	Memory     MemoryInfo  `json:"memory"`
	Runtime    RuntimeInfo `json:"runtime"`
	Time       TimeInfo    `json:"time"`
	Timestamp  string      `json:"timestamp"`
	Paths      *PathsInfo  `json:"paths,omitempty"`
	Storage    *StoreInfo  `json:"storage,omitempty"`
	Bot        *BotInfo    `json:"bot,omitempty"`
	Cron       *CronInfo   `json:"cron,omitempty"`
}

// MemoryInfo contains memory statistics in MB.
type MemoryInfo struct {
	AllocMB      float64 `json:"allocMB"`
	TotalAllocMB float64 `json:"totalAllocMB"`
	SysMB        float64 `json:"sysMB"`
	NumGC        uint32  `json:"numGC"`
}

// RuntimeInfo contains Go runtime metadata.
type RuntimeInfo struct {
	Version string `json:"version"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	CPUs    int    `json:"cpus"`
}

// TimeInfo contains current process time and timezone diagnostics.
type TimeInfo struct {
	Local     string `json:"local"`
	UTC       string `json:"utc"`
	Weekday   string `json:"weekday"`
	Timezone  string `json:"timezone"`
	UTCOffset string `json:"utcOffset"`
	Unix      int64  `json:"unix"`
}

// PathsInfo contains the config and storage locations.
type PathsInfo struct {
	ConfigDir  string `json:"configDir,omitempty"`
	ConfigFile string `json:"configFile,omitempty"`
}

// StoreInfo describes the persistent store.
type StoreInfo struct {
	Type          string `json:"type"`
	Path          string `json:"path,omitempty"`
	Exists        bool   `json:"exists"`
	FileSizeBytes int64  `json:"fileSizeBytes,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

// BotInfo is the live state of a running bot.
type BotInfo struct {
	Name            string   `json:"name"`
	PendingRequests int      `json:"pendingRequests"`
	TasksInFlight   int      `json:"tasksInFlight"`
	Idle            bool     `json:"idle"`
	Channels        []string `json:"channels,omitempty"`
	Collaborators   []string `json:"collaborators,omitempty"`
	ProxyCacheSize  int      `json:"proxyCacheSize"`
}

// CronInfo lists scheduled jobs.
type CronInfo struct {
	Jobs []CronJobInfo `json:"jobs,omitempty"`
}

// CronJobInfo is a compact cron job summary for health output.
type CronJobInfo struct {
	Name     string `json:"name"`
	Schedule string `json:"schedule"`
	NextRun  string `json:"nextRun,omitempty"`
}

// Options controls optional health details.
type Options struct {
	ConfigDir   string
	ConfigFile  string
	StoreType   string
	StorePath   string
	Bot         *BotInfo
	CronJobs    []CronJobInfo
	IncludeCron bool
}

func (o Options) normalize() Options {
	o.ConfigDir = strings.TrimSpace(o.ConfigDir)
	o.ConfigFile = strings.TrimSpace(o.ConfigFile)
	o.StoreType = strings.TrimSpace(o.StoreType)
	o.StorePath = strings.TrimSpace(o.StorePath)
	return o
}
