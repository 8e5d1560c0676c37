package config

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-poserender/pose"
)

const yamlConfig = `
model: mpi
output_size:
  width: 640
  height: 480
heatmaps_size:
  width: 368
  height: 368
blend_original_frame: false
alpha_keypoint: 0.5
alpha_heatmap: 0.25
element_to_render: 3
googly_eyes: true
cpu_cores: [4, 5, 6, 7]
listen: ":8090"
render:
  render_threshold: 0.1
  normalize_heatmaps: true
`

const tomlConfig = `
model = "mpi"
blend_original_frame = false
alpha_keypoint = 0.5
alpha_heatmap = 0.25
element_to_render = 3
googly_eyes = true
cpu_cores = [4, 5, 6, 7]
listen = ":8090"

[output_size]
width = 640
height = 480

[heatmaps_size]
width = 368
height = 368

[render]
render_threshold = 0.1
normalize_heatmaps = true
`

func TestParse(t *testing.T) {

	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml", yamlConfig, YAML},
		{"toml", tomlConfig, TOML},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tc.data), tc.format)
			require.NoError(t, err)

			assert.Equal(t, "mpi", cfg.Model)
			assert.Equal(t, image.Pt(640, 480), cfg.OutputSize.Point())
			assert.Equal(t, image.Pt(368, 368), cfg.HeatMapsSize.Point())
			assert.False(t, cfg.BlendOriginalFrame)
			assert.Equal(t, float32(0.5), cfg.AlphaKeypoint)
			assert.Equal(t, float32(0.25), cfg.AlphaHeatMap)
			assert.Equal(t, 3, cfg.ElementToRender)
			assert.True(t, cfg.GooglyEyes)
			assert.Equal(t, []int{4, 5, 6, 7}, cfg.CPUCores)
			assert.Equal(t, ":8090", cfg.Listen)
			assert.Equal(t, float32(0.1), cfg.Render.RenderThreshold)
			assert.True(t, cfg.Render.NormalizeHeatMaps)
		})
	}
}

func TestParseKeepsDefaults(t *testing.T) {

	cfg, err := Parse([]byte("googly_eyes: true\n"), YAML)
	require.NoError(t, err)

	want := Default()
	want.GooglyEyes = true
	assert.Equal(t, want, cfg)

	cfg, err = Parse(nil, YAML)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	cfg, err = Parse(nil, TOML)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {

	tests := []struct {
		name   string
		data   string
		format Format
		errIs  error
	}{
		{"unknown yaml field", "colour: red\n", YAML, nil},
		{"unknown toml field", "colour = \"red\"\n", TOML, nil},
		{"bad model", "model: body25\n", YAML, ErrInvalid},
		{"alpha too large", "alpha_keypoint: 1.5\n", YAML, ErrInvalid},
		{"negative alpha", "alpha_heatmap = -0.1\n", TOML, ErrInvalid},
		{"zero output", "output_size: {width: 0, height: 10}\n", YAML, ErrInvalid},
		{"zero heatmaps", "[heatmaps_size]\nwidth = 10\nheight = 0\n", TOML, ErrInvalid},
		{"negative element", "element_to_render: -1\n", YAML, ErrInvalid},
		{"negative core", "cpu_cores: [-1]\n", YAML, ErrInvalid},
		{"bad format", "", Format("json"), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.data), tc.format)
			require.Error(t, err)

			if tc.errIs != nil {
				assert.ErrorIs(t, err, tc.errIs)
			}
		})
	}
}

func TestFormatOf(t *testing.T) {

	tests := []struct {
		path   string
		format Format
		err    bool
	}{
		{"vis.yaml", YAML, false},
		{"vis.YML", YAML, false},
		{"dir/vis.toml", TOML, false},
		{"vis.json", "", true},
		{"vis", "", true},
	}

	for _, tc := range tests {
		format, err := FormatOf(tc.path)

		if tc.err {
			assert.Error(t, err, tc.path)
			continue
		}

		assert.NoError(t, err, tc.path)
		assert.Equal(t, tc.format, format, tc.path)
	}
}

func TestLoadWithPartNames(t *testing.T) {

	dir := t.TempDir()

	names := make([]string, len(pose.MPI.Topology().PartNames))
	for i := range names {
		names[i] = strings.Repeat("p", i+1)
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "parts.txt"),
		[]byte(strings.Join(names, "\n")), 0644))

	path := filepath.Join(dir, "vis.yml")
	require.NoError(t, os.WriteFile(path, []byte("model: MPI\npart_names: parts.txt\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "parts.txt"), cfg.PartNames)

	top, err := cfg.Topology()
	require.NoError(t, err)
	assert.Equal(t, names, top.PartNames)

	// the registered topology is untouched
	assert.Equal(t, "Head", pose.MPI.Topology().PartNames[0])
}

func TestLoadErrors(t *testing.T) {

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load("vis.ini")
	assert.Error(t, err)

	cfg := Default()
	cfg.PartNames = filepath.Join(t.TempDir(), "missing.txt")
	_, err = cfg.Topology()
	assert.Error(t, err)
}

func TestParams(t *testing.T) {

	cfg, err := Parse([]byte(yamlConfig), YAML)
	require.NoError(t, err)

	p := cfg.PoseRendererParams()
	assert.Equal(t, image.Pt(640, 480), p.OutputSize)
	assert.Equal(t, image.Pt(368, 368), p.HeatMapsSize)
	assert.False(t, p.BlendOriginalFrame)
	assert.Equal(t, float32(0.5), p.AlphaKeypoint)
	assert.Equal(t, float32(0.25), p.AlphaHeatMap)
	assert.Equal(t, 3, p.ElementToRender)
	assert.True(t, p.GooglyEyes)

	rp := cfg.RenderParams()
	assert.Equal(t, float32(0.1), rp.RenderThreshold)
	assert.True(t, rp.NormalizeHeatMaps)

	top, err := cfg.Topology()
	require.NoError(t, err)
	assert.Equal(t, pose.MPI.Topology(), top)
}
