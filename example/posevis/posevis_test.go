package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/swdee/go-poserender"
	"gocv.io/x/gocv"
)

func TestCloseAfterRender(t *testing.T) {

	out := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	done := make(chan poserender.Result, 1)
	done <- poserender.Result{Element: 0}

	closeAfterRender(&out, done, nil)
	assert.Nil(t, out.Ptr())

	stopped := make(chan struct{})
	close(stopped)

	out = gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC3)
	closeAfterRender(&out, make(chan poserender.Result), stopped)
	assert.Nil(t, out.Ptr())
}
