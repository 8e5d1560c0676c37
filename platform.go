package poserender

import (
	"fmt"
	"strings"
)

// CoreType specifies the CPU core type
type CoreType int

const (
	FastCores CoreType = 0
	SlowCores CoreType = 1
	AllCores  CoreType = 2
)

var (
	// cores of the big.LITTLE Rockchip SoCs, the fast cores are numbered
	// after the efficient ones
	rk35xxFast    = []int{4, 5, 6, 7}
	rk35xxSlow    = []int{0, 1, 2, 3}
	rk35xxAll     = []int{0, 1, 2, 3, 4, 5, 6, 7}
	rk3582Fast    = []int{4, 5}
	rk3582All     = []int{0, 1, 2, 3, 4, 5}
	rk356xAllOnly = []int{0, 1, 2, 3}
)

// coreList defines the CPU cores of each platform for lookup by key
var coreList = map[string]map[CoreType][]int{
	"rk3562": {SlowCores: rk356xAllOnly, FastCores: rk356xAllOnly, AllCores: rk356xAllOnly},
	"rk3566": {SlowCores: rk356xAllOnly, FastCores: rk356xAllOnly, AllCores: rk356xAllOnly},
	"rk3568": {SlowCores: rk356xAllOnly, FastCores: rk356xAllOnly, AllCores: rk356xAllOnly},
	"rk3576": {SlowCores: rk35xxSlow, FastCores: rk35xxFast, AllCores: rk35xxAll},
	"rk3582": {SlowCores: rk35xxSlow, FastCores: rk3582Fast, AllCores: rk3582All},
	"rk3588": {SlowCores: rk35xxSlow, FastCores: rk35xxFast, AllCores: rk35xxAll},
}

// PlatformCores returns the CPU cores of the given core type for a platform
// of rk3562|rk3566|rk3568|rk3576|rk3582|rk3588
func PlatformCores(platform string, ct CoreType) ([]int, error) {

	platform = strings.ToLower(strings.TrimSpace(platform))

	if types, ok := coreList[platform]; ok {
		if cores, ok := types[ct]; ok {
			return append([]int(nil), cores...), nil
		}
	}

	return nil, fmt.Errorf("unknown platform: %s", platform)
}
