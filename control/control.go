// Package control drives a running pose renderer from outside the render
// thread, over a websocket endpoint or by watching the configuration file.
package control

import (
	"log/slog"
	"sync/atomic"

	"github.com/swdee/go-poserender"
	"github.com/swdee/go-poserender/config"
)

// logger is the logger of a control type, it follows poserender.Logger
// until one is set on the type
type logger struct {
	l atomic.Pointer[slog.Logger]
}

func (lg *logger) set(l *slog.Logger) {
	if l != nil {
		lg.l.Store(l)
	}
}

func (lg *logger) get() *slog.Logger {
	if l := lg.l.Load(); l != nil {
		return l
	}

	return poserender.Logger()
}

// Renderer is the part of a pose renderer the control layer writes to.  All
// methods must be safe to call while the renderer is drawing frames.
type Renderer interface {
	Selector() *poserender.Selector
	Layer(element int) (poserender.Layer, error)
	BlendOriginalFrame() bool
	SetBlendOriginalFrame(blend bool)
	ShowGooglyEyes() bool
	SetShowGooglyEyes(show bool)
	SetAlphaKeypoint(alpha float32)
	SetAlphaHeatMap(alpha float32)
}

// State is the control state reported back to clients
type State struct {
	Element int    `json:"element"`
	Label   string `json:"label"`
	Blend   bool   `json:"blend"`
	Googly  bool   `json:"googly"`
	Error   string `json:"error,omitempty"`
}

// CurrentState returns the selected element, its label and the toggles
func CurrentState(r Renderer) State {

	element := r.Selector().Load()

	st := State{
		Element: element,
		Blend:   r.BlendOriginalFrame(),
		Googly:  r.ShowGooglyEyes(),
	}

	layer, err := r.Layer(element)

	if err != nil {
		st.Error = err.Error()
		return st
	}

	st.Label = layer.Label

	return st
}

// ApplyConfig writes the runtime adjustable settings of the configuration to
// the renderer
func ApplyConfig(r Renderer, cfg config.Config) {
	r.Selector().Set(cfg.ElementToRender)
	r.SetBlendOriginalFrame(cfg.BlendOriginalFrame)
	r.SetShowGooglyEyes(cfg.GooglyEyes)
	r.SetAlphaKeypoint(cfg.AlphaKeypoint)
	r.SetAlphaHeatMap(cfg.AlphaHeatMap)
}
