// Package config loads the visualizer settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	poserender "github.com/swdee/go-poserender"
	"github.com/swdee/go-poserender/pose"
	"github.com/swdee/go-poserender/render"
	"gopkg.in/yaml.v3"
)

// Format of a configuration file
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
)

// ErrInvalid is returned when a configuration fails validation
var ErrInvalid = errors.New("invalid configuration")

// Size is a width and height in pixels
type Size struct {
	Width  int `yaml:"width" toml:"width"`
	Height int `yaml:"height" toml:"height"`
}

// Point returns the size as an image.Point
func (s Size) Point() image.Point {
	return image.Pt(s.Width, s.Height)
}

// Render holds the drawing settings of the render kernels
type Render struct {
	RenderThreshold   float32 `yaml:"render_threshold" toml:"render_threshold"`
	NormalizeHeatMaps bool    `yaml:"normalize_heatmaps" toml:"normalize_heatmaps"`
}

// Config holds the visualizer settings
type Config struct {
	// Model is the pose model name, eg: COCO
	Model string `yaml:"model" toml:"model"`
	// PartNames is an optional file of body part names overriding the model's
	PartNames string `yaml:"part_names" toml:"part_names"`
	// OutputSize is the size of the rendered frames
	OutputSize Size `yaml:"output_size" toml:"output_size"`
	// HeatMapsSize is the size of a single network heatmap channel
	HeatMapsSize       Size    `yaml:"heatmaps_size" toml:"heatmaps_size"`
	BlendOriginalFrame bool    `yaml:"blend_original_frame" toml:"blend_original_frame"`
	AlphaKeypoint      float32 `yaml:"alpha_keypoint" toml:"alpha_keypoint"`
	AlphaHeatMap       float32 `yaml:"alpha_heatmap" toml:"alpha_heatmap"`
	ElementToRender    int     `yaml:"element_to_render" toml:"element_to_render"`
	GooglyEyes         bool    `yaml:"googly_eyes" toml:"googly_eyes"`
	// CPUCores the render thread is pinned to, empty leaves it unpinned
	CPUCores []int `yaml:"cpu_cores" toml:"cpu_cores"`
	// Listen is the address of the websocket control endpoint, empty
	// disables it
	Listen string `yaml:"listen" toml:"listen"`
	Render Render `yaml:"render" toml:"render"`
}

// Default returns the default settings for a COCO model rendering 656x368
// network heatmaps onto 1280x720 frames
func Default() Config {
	rp := render.DefaultParams()

	return Config{
		Model:              pose.COCO.String(),
		OutputSize:         Size{Width: 1280, Height: 720},
		HeatMapsSize:       Size{Width: 656, Height: 368},
		BlendOriginalFrame: true,
		AlphaKeypoint:      poserender.DefaultAlphaKeypoint,
		AlphaHeatMap:       poserender.DefaultAlphaHeatMap,
		Render: Render{
			RenderThreshold:   rp.RenderThreshold,
			NormalizeHeatMaps: rp.NormalizeHeatMaps,
		},
	}
}

// FormatOf returns the file format from the path extension
func FormatOf(path string) (Format, error) {

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML, nil
	case ".toml":
		return TOML, nil
	}

	return "", fmt.Errorf("unsupported configuration file extension %q", filepath.Ext(path))
}

// Load reads and validates the configuration file, settings missing from the
// file keep their Default values
func Load(path string) (Config, error) {

	format, err := FormatOf(path)

	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)

	if err != nil {
		return Config{}, fmt.Errorf("error reading configuration: %w", err)
	}

	cfg, err := Parse(data, format)

	if err != nil {
		return Config{}, fmt.Errorf("error loading %s: %w", path, err)
	}

	// part names are relative to the configuration file
	if cfg.PartNames != "" && !filepath.IsAbs(cfg.PartNames) {
		cfg.PartNames = filepath.Join(filepath.Dir(path), cfg.PartNames)
	}

	return cfg, nil
}

// Parse decodes and validates configuration data in the given format
func Parse(data []byte, format Format) (Config, error) {

	cfg := Default()

	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		// an empty document keeps the defaults
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("error decoding yaml: %w", err)
		}

	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()

		if err := dec.Decode(&cfg); err != nil {
			return Config{}, fmt.Errorf("error decoding toml: %w", err)
		}

	default:
		return Config{}, fmt.Errorf("unsupported configuration format %q", format)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings are usable
func (c Config) Validate() error {

	if _, err := pose.ParseModel(c.Model); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	if c.OutputSize.Width <= 0 || c.OutputSize.Height <= 0 {
		return fmt.Errorf("%w: output size %dx%d must be positive", ErrInvalid,
			c.OutputSize.Width, c.OutputSize.Height)
	}

	if c.HeatMapsSize.Width <= 0 || c.HeatMapsSize.Height <= 0 {
		return fmt.Errorf("%w: heatmaps size %dx%d must be positive", ErrInvalid,
			c.HeatMapsSize.Width, c.HeatMapsSize.Height)
	}

	if c.AlphaKeypoint < 0 || c.AlphaKeypoint > 1 {
		return fmt.Errorf("%w: alpha_keypoint %v outside [0,1]", ErrInvalid, c.AlphaKeypoint)
	}

	if c.AlphaHeatMap < 0 || c.AlphaHeatMap > 1 {
		return fmt.Errorf("%w: alpha_heatmap %v outside [0,1]", ErrInvalid, c.AlphaHeatMap)
	}

	if c.ElementToRender < 0 {
		return fmt.Errorf("%w: element_to_render %d is negative", ErrInvalid, c.ElementToRender)
	}

	for _, core := range c.CPUCores {
		if core < 0 {
			return fmt.Errorf("%w: cpu core %d is negative", ErrInvalid, core)
		}
	}

	return nil
}

// Topology returns the topology of the configured model with the part names
// file applied
func (c Config) Topology() (*pose.Topology, error) {

	model, err := pose.ParseModel(c.Model)

	if err != nil {
		return nil, err
	}

	top := model.Topology()

	if c.PartNames == "" {
		return top, nil
	}

	names, err := poserender.LoadPartNames(c.PartNames)

	if err != nil {
		return nil, err
	}

	return top.WithPartNames(names)
}

// PoseRendererParams returns the renderer parameters of the configuration
func (c Config) PoseRendererParams() poserender.PoseRendererParams {

	p := poserender.PoseRendererDefaultParams(c.OutputSize.Point(), c.HeatMapsSize.Point())
	p.BlendOriginalFrame = c.BlendOriginalFrame
	p.AlphaKeypoint = c.AlphaKeypoint
	p.AlphaHeatMap = c.AlphaHeatMap
	p.ElementToRender = c.ElementToRender
	p.GooglyEyes = c.GooglyEyes

	return p
}

// RenderParams returns the render kernel parameters of the configuration
func (c Config) RenderParams() render.Params {

	p := render.DefaultParams()
	p.RenderThreshold = c.Render.RenderThreshold
	p.NormalizeHeatMaps = c.Render.NormalizeHeatMaps

	return p
}
