//go:build !linux

package poserender

import "errors"

// errAffinityUnsupported is returned on platforms without thread affinity
var errAffinityUnsupported = errors.New("CPU affinity is only supported on linux")

// SetCPUAffinity is not supported on this platform
func SetCPUAffinity(cores []int) error {
	return errAffinityUnsupported
}

// GetCPUAffinity is not supported on this platform
func GetCPUAffinity() ([]int, error) {
	return nil, errAffinityUnsupported
}
