package pose

import (
	"fmt"
	"strings"
)

// MaxPeople is the maximum number of people that can be tracked and rendered
// in a single frame.  The device keypoint buffer is sized for this many
// people.
const MaxPeople = 96

// Model identifies a supported pose estimation network keypoint topology
type Model int

const (
	// COCO is the 18 body part model trained on the COCO dataset
	COCO Model = iota
	// MPI is the 15 body part model trained on the MPII dataset
	MPI
	// MPI4Layers is the faster 4 stage variant of the MPI model, it shares
	// the same topology
	MPI4Layers
	// numberModels must remain last
	numberModels
)

// String returns the name of the pose model
func (m Model) String() string {
	switch m {
	case COCO:
		return "COCO"
	case MPI:
		return "MPI"
	case MPI4Layers:
		return "MPI_4_layers"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// Valid reports whether the model is one of the registered models
func (m Model) Valid() bool {
	return m >= 0 && m < numberModels
}

// Models returns all registered pose models in registry order
func Models() []Model {
	models := make([]Model, 0, numberModels)

	for m := Model(0); m < numberModels; m++ {
		models = append(models, m)
	}

	return models
}

// ParseModel returns the Model for the given name, matching is case
// insensitive, eg: "coco", "MPI", "mpi_4_layers"
func ParseModel(name string) (Model, error) {

	name = strings.TrimSpace(name)

	for _, m := range Models() {
		if strings.EqualFold(m.String(), name) {
			return m, nil
		}
	}

	return 0, fmt.Errorf("unknown pose model: %q", name)
}

// Topology returns the static topology table for the model.  Passing a model
// that is not registered is a programming error and panics.
func (m Model) Topology() *Topology {
	if !m.Valid() {
		panic(fmt.Sprintf("pose: no topology registered for %s", m))
	}

	return registry[m]
}

// Pair is an ordered pair of indexes.  For limbs it holds the two body part
// indexes connected, for affinity fields the X and Y channel indexes.
type Pair struct {
	A int
	B int
}

// Topology describes the body parts of a pose model, which parts are
// connected by limbs and the network output channels holding the Part
// Affinity Field of each limb.
type Topology struct {
	// Name of the topology, the Model name for registered topologies
	Name string
	// NumberBodyParts is the number of body parts, excluding background
	NumberBodyParts int
	// PartNames are the names of each heatmap channel indexed by part
	// number.  Registered models append the background channel after the
	// body parts.
	PartNames []string
	// LimbPairs are the body parts connected by a limb
	LimbPairs []Pair
	// MapIdx are the network channels of the X and Y affinity field
	// components of each limb, aligned 1:1 with LimbPairs
	MapIdx []Pair
	// RenderPairs are the limbs drawn when rendering the skeleton
	RenderPairs []Pair
	// Eyes are the part indexes of the eyes, used for googly eyes
	Eyes []int
}

// NewTopology creates and validates a custom topology.  renderPairs may be
// nil in which case all limbs are drawn.
func NewTopology(name string, numberBodyParts int, partNames []string,
	limbPairs, mapIdx, renderPairs []Pair, eyes []int) (*Topology, error) {

	t := &Topology{
		Name:            name,
		NumberBodyParts: numberBodyParts,
		PartNames:       append([]string(nil), partNames...),
		LimbPairs:       append([]Pair(nil), limbPairs...),
		MapIdx:          append([]Pair(nil), mapIdx...),
		RenderPairs:     append([]Pair(nil), renderPairs...),
		Eyes:            append([]int(nil), eyes...),
	}

	if renderPairs == nil {
		t.RenderPairs = t.LimbPairs
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks the structural invariants of the topology
func (t *Topology) Validate() error {

	if t.NumberBodyParts <= 0 {
		return fmt.Errorf("topology %s: number of body parts must be positive, got %d",
			t.Name, t.NumberBodyParts)
	}

	if len(t.PartNames) < t.NumberBodyParts {
		return fmt.Errorf("topology %s: %d part names for %d body parts",
			t.Name, len(t.PartNames), t.NumberBodyParts)
	}

	if len(t.LimbPairs) != len(t.MapIdx) {
		return fmt.Errorf("topology %s: %d limb pairs but %d affinity channel pairs",
			t.Name, len(t.LimbPairs), len(t.MapIdx))
	}

	for i, p := range t.LimbPairs {
		if p.A < 0 || p.A >= t.NumberBodyParts || p.B < 0 || p.B >= t.NumberBodyParts {
			return fmt.Errorf("topology %s: limb %d (%d,%d) references unknown body part",
				t.Name, i, p.A, p.B)
		}
	}

	for i, p := range t.MapIdx {
		if p.A < 0 || p.B < 0 {
			return fmt.Errorf("topology %s: affinity channel pair %d (%d,%d) is negative",
				t.Name, i, p.A, p.B)
		}
	}

	for i, p := range t.RenderPairs {
		if !t.isPart(p.A) || !t.isPart(p.B) {
			return fmt.Errorf("topology %s: render pair %d (%d,%d) references unknown body part",
				t.Name, i, p.A, p.B)
		}
	}

	for i, eye := range t.Eyes {
		if !t.isPart(eye) {
			return fmt.Errorf("topology %s: eye %d references unknown body part %d",
				t.Name, i, eye)
		}
	}

	return nil
}

// isPart reports whether idx is a body part index
func (t *Topology) isPart(idx int) bool {
	return idx >= 0 && idx < t.NumberBodyParts
}

// NumberLimbs returns the number of limbs connecting body parts
func (t *Topology) NumberLimbs() int {
	return len(t.LimbPairs)
}

// NumberChannels returns the number of network output channels, which is
// the part heatmaps followed by the affinity field channels
func (t *Topology) NumberChannels() int {

	n := len(t.PartNames)

	for _, p := range t.MapIdx {
		if p.A+1 > n {
			n = p.A + 1
		}
		if p.B+1 > n {
			n = p.B + 1
		}
	}

	return n
}

// NumberElementsToRender is the count of selectable render layers, the
// skeleton, every part heatmap plus background, the combined heatmaps, the
// combined affinity fields and one per limb affinity field
func (t *Topology) NumberElementsToRender() int {
	return t.NumberBodyParts + 1 + len(t.LimbPairs) + 3
}

// AffinityPairFor returns the affinity channel pair whose X channel is the
// given index
func (t *Topology) AffinityPairFor(mapIdxA int) (Pair, bool) {

	for _, p := range t.MapIdx {
		if p.A == mapIdxA {
			return p, true
		}
	}

	return Pair{}, false
}

// WithPartNames returns a copy of the topology using the given part names,
// eg: for localized labels.  The number of names must match.
func (t *Topology) WithPartNames(names []string) (*Topology, error) {

	if len(names) != len(t.PartNames) {
		return nil, fmt.Errorf("topology %s: expected %d part names, got %d",
			t.Name, len(t.PartNames), len(names))
	}

	c := *t
	c.PartNames = append([]string(nil), names...)

	return &c, nil
}
