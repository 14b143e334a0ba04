// Package common holds small formatting helpers for the CLI.
package common

import "fmt"

var byteUnits = [...]string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

// Counter is a byte counter as the panel reports it: int64 on inbounds
// and clients, uint64 on server stats.
type Counter interface {
	~int64 | ~uint64
}

// FormatBytes renders n with a binary unit, e.g. 1.50KB.
func FormatBytes[T Counter](n T) string {
	sign := ""
	size := float64(n)
	if size < 0 {
		sign = "-"
		size = -size
	}
	i := 0
	for size >= 1024 && i < len(byteUnits)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%s%.2f%s", sign, size, byteUnits[i])
}

// FormatQuota is FormatBytes where zero means no limit.
func FormatQuota(limit int64) string {
	if limit <= 0 {
		return "unlimited"
	}
	return FormatBytes(limit)
}
