//go:build linux

package tile

import "syscall"

// physicalMemory reports installed RAM in bytes.
func physicalMemory() (uint64, error) {
	var info syscall.Sysinfo_t
	if err := syscall.Sysinfo(&info); err != nil {
		return 0, err
	}
	return uint64(info.Totalram) * uint64(info.Unit), nil
}
