package poserender

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlatformCores(t *testing.T) {

	cores, err := PlatformCores(" RK3588 ", FastCores)
	assert.NoError(t, err)
	assert.Equal(t, []int{4, 5, 6, 7}, cores)

	_, err = PlatformCores("rk1234", FastCores)
	assert.Error(t, err)
}
