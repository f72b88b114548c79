//go:build !linux && !darwin && !freebsd && !windows

package saver

// freeDiskSpace is not implemented on this platform; the check is skipped.
func freeDiskSpace(path string) int64 {
	return -1
}
