package poserender

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-poserender/pose"
)

func TestBuildLabelsRegisteredModels(t *testing.T) {

	for _, m := range pose.Models() {
		t.Run(m.String(), func(t *testing.T) {

			top := m.Topology()
			labels, err := BuildLabels(top)
			require.NoError(t, err)

			// affinity channels do not alias part channels in any
			// registered model so every limb adds two entries
			assert.Len(t, labels, len(top.PartNames)+2*len(top.LimbPairs))

			for i, name := range top.PartNames {
				assert.Equal(t, name, labels[i])
			}

			for i, limb := range top.LimbPairs {
				base := top.PartNames[limb.A] + "->" + top.PartNames[limb.B]
				assert.Equal(t, base+"(X)", labels[top.MapIdx[i].A])
				assert.Equal(t, base+"(Y)", labels[top.MapIdx[i].B])
			}
		})
	}
}

func TestBuildLabelsCOCO(t *testing.T) {

	labels, err := BuildLabels(pose.COCO.Topology())
	require.NoError(t, err)

	assert.Equal(t, "Nose", labels[0])
	assert.Equal(t, "Background", labels[18])
	assert.Equal(t, "Neck->RShoulder(X)", labels[31])
	assert.Equal(t, "Neck->RShoulder(Y)", labels[32])
	assert.Equal(t, "Neck->RHip(X)", labels[19])
	assert.Equal(t, "LShoulder->LEar(Y)", labels[46])
}

func TestBuildLabelsOverwriteWinsLast(t *testing.T) {

	// limb channels 2 and 3 alias the names of parts 2 and 3, the second
	// limb then resolves its endpoint through the overwritten label
	top := &pose.Topology{
		Name:            "alias",
		NumberBodyParts: 4,
		PartNames:       []string{"a", "b", "c", "d"},
		LimbPairs:       []pose.Pair{{0, 1}, {2, 3}},
		MapIdx:          []pose.Pair{{2, 3}, {4, 5}},
	}

	labels, err := BuildLabels(top)
	require.NoError(t, err)

	assert.Len(t, labels, 6)
	assert.Equal(t, "a->b(X)", labels[2])
	assert.Equal(t, "a->b(Y)", labels[3])
	assert.Equal(t, "a->b(X)->a->b(Y)(X)", labels[4])
}

func TestBuildLabelsMalformed(t *testing.T) {

	tests := []struct {
		name string
		top  *pose.Topology
	}{
		{"nil", nil},
		{"unaligned", &pose.Topology{
			Name: "unaligned", NumberBodyParts: 2, PartNames: []string{"a", "b"},
			LimbPairs: []pose.Pair{{0, 1}}, MapIdx: nil,
		}},
		{"unnamed part", &pose.Topology{
			Name: "unnamed", NumberBodyParts: 3, PartNames: []string{"a", "b"},
			LimbPairs: []pose.Pair{{0, 2}}, MapIdx: []pose.Pair{{3, 4}},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			labels, err := BuildLabels(tc.top)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfiguration))
			assert.Empty(t, labels)
		})
	}
}

func TestLimbName(t *testing.T) {
	assert.Equal(t, "Neck->RHip", limbName("Neck->RHip(X)"))
	assert.Equal(t, "Heatmaps", limbName("Heatmaps"))
	assert.Equal(t, "PAFs ", limbName("PAFs (Part Affinity Fields)"))
}

func TestLoadPartNames(t *testing.T) {

	file := filepath.Join(t.TempDir(), "parts.txt")
	content := strings.Join([]string{"Nariz", " Cuello ", "", "Fondo"}, "\n")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	names, err := LoadPartNames(file)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nariz", "Cuello", "Fondo"}, names)

	_, err = LoadPartNames(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
