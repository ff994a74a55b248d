package tui

import (
	"fmt"
	"strings"
	"time"
)

// formatDuration formats a duration as HH:MM:SS
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatNumber formats a counter as a human-readable string (1.2K, 3.4M, etc.)
func formatNumber(val uint64) string {
	if val < 1000 {
		return fmt.Sprintf("%d", val)
	}
	if val < 1000000 {
		return fmt.Sprintf("%.1fK", float64(val)/1000)
	}
	if val < 1000000000 {
		return fmt.Sprintf("%.1fM", float64(val)/1000000)
	}
	return fmt.Sprintf("%.1fB", float64(val)/1000000000)
}

// formatRate formats a per-second rate with appropriate units
func formatRate(value float64) string {
	if value < 1000 {
		return fmt.Sprintf("%.0f/sec", value)
	}
	if value < 1000000 {
		return fmt.Sprintf("%.1fK/sec", value/1000)
	}
	return fmt.Sprintf("%.1fM/sec", value/1000000)
}

// renderProgressBar renders an ASCII progress bar
func renderProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}

	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)
	return fmt.Sprintf("[%s] %d%%", bar, int(progress*100))
}

// truncateString truncates a string to maxLen and adds "..." if needed
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
