package health

import (
	"fmt"
	"strings"
)

// FormatText formats a snapshot into a human-readable text block.
func FormatText(s Snapshot) string {
	var b strings.Builder
	b.WriteString("hypebot Health\n")
	b.WriteString("==============\n\n")
	b.WriteString(fmt.Sprintf("Status: %s\n\n", s.Status))
	b.WriteString("Memory:\n")
	b.WriteString(fmt.Sprintf("  Allocated: %.2f MB\n", s.Memory.AllocMB))
	b.WriteString(fmt.Sprintf("  Total Allocated: %.2f MB\n", s.Memory.TotalAllocMB))
	b.WriteString(fmt.Sprintf("  System: %.2f MB\n", s.Memory.SysMB))
	b.WriteString(fmt.Sprintf("  GC Cycles: %d\n\n", s.Memory.NumGC))
	b.WriteString("Runtime:\n")
	b.WriteString(fmt.Sprintf("  Go Version: %s\n", s.Runtime.Version))
	b.WriteString(fmt.Sprintf("  OS/Arch: %s/%s\n", s.Runtime.OS, s.Runtime.Arch))
	b.WriteString(fmt.Sprintf("  CPUs: %d\n", s.Runtime.CPUs))
	b.WriteString(fmt.Sprintf("  Goroutines: %d\n", s.Goroutines))
	b.WriteString("\nTime:\n")
	b.WriteString(fmt.Sprintf("  Local: %s\n", s.Time.Local))
	b.WriteString(fmt.Sprintf("  UTC: %s\n", s.Time.UTC))
	b.WriteString(fmt.Sprintf("  Weekday: %s\n", s.Time.Weekday))
	b.WriteString(fmt.Sprintf("  Timezone: %s (UTC%s)\n", s.Time.Timezone, s.Time.UTCOffset))
	b.WriteString(fmt.Sprintf("  Unix: %d\n", s.Time.Unix))

	if s.Paths != nil {
		b.WriteString("\nPaths:\n")
		if s.Paths.ConfigDir != "" {
			b.WriteString(fmt.Sprintf("  Config Dir: %s\n", s.Paths.ConfigDir))
		}
		if s.Paths.ConfigFile != "" {
			b.WriteString(fmt.Sprintf("  Config File: %s\n", s.Paths.ConfigFile))
		}
	}

	if s.Storage != nil {
		b.WriteString("\nStorage:\n")
		b.WriteString(fmt.Sprintf("  Type: %s\n", s.Storage.Type))
		if s.Storage.Path != "" {
			b.WriteString(fmt.Sprintf("  Path: %s\n", s.Storage.Path))
			b.WriteString(fmt.Sprintf("  Exists: %t\n", s.Storage.Exists))
		}
		if s.Storage.FileSizeBytes > 0 {
			b.WriteString(fmt.Sprintf("  Size: %d bytes\n", s.Storage.FileSizeBytes))
		}
		if s.Storage.UpdatedAt != "" {
			b.WriteString(fmt.Sprintf("  Updated At: %s\n", s.Storage.UpdatedAt))
		}
	}

	if s.Bot != nil {
		b.WriteString("\nBot:\n")
		b.WriteString(fmt.Sprintf("  Name: %s\n", s.Bot.Name))
		b.WriteString(fmt.Sprintf("  Pending Requests: %d\n", s.Bot.PendingRequests))
		b.WriteString(fmt.Sprintf("  Tasks In Flight: %d\n", s.Bot.TasksInFlight))
		b.WriteString(fmt.Sprintf("  Idle: %t\n", s.Bot.Idle))
		b.WriteString(fmt.Sprintf("  Proxy Cache: %d entries\n", s.Bot.ProxyCacheSize))
		if len(s.Bot.Channels) > 0 {
			b.WriteString(fmt.Sprintf("  Channels: %s\n", strings.Join(s.Bot.Channels, ", ")))
		}
		if len(s.Bot.Collaborators) > 0 {
			b.WriteString(fmt.Sprintf("  Collaborators: %s\n", strings.Join(s.Bot.Collaborators, ", ")))
		}
	}

	if s.Cron != nil {
		b.WriteString("\nCron:\n")
		b.WriteString(fmt.Sprintf("  Jobs: %d\n", len(s.Cron.Jobs)))
		for _, job := range s.Cron.Jobs {
			next := job.NextRun
			if next == "" {
				next = "-"
			}
			b.WriteString(fmt.Sprintf("    - %s | schedule=%s | next=%s\n", job.Name, job.Schedule, next))
		}
	}

	return b.String()
}
