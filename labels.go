package poserender

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/swdee/go-poserender/pose"
)

// LabelTable maps a network channel index to the label displayed when that
// channel is rendered
type LabelTable map[int]string

// Label returns the label of the given channel
func (l LabelTable) Label(channel int) (string, bool) {
	name, ok := l[channel]
	return name, ok
}

// BuildLabels creates the label table for a topology.  Body part channels
// are labelled with the part name and each limb's two affinity field
// channels are labelled "A->B(X)" and "A->B(Y)".  Limbs are processed in
// order and a limb channel that coincides with an earlier entry overwrites
// it.
func BuildLabels(top *pose.Topology) (LabelTable, error) {

	const op = "BuildLabels"

	if top == nil {
		return LabelTable{}, errorf(ConfigurationError, op, "nil topology")
	}

	if len(top.LimbPairs) != len(top.MapIdx) {
		return LabelTable{}, errorf(ConfigurationError, op,
			"topology %s has %d limb pairs but %d affinity channel pairs",
			top.Name, len(top.LimbPairs), len(top.MapIdx))
	}

	labels := make(LabelTable, len(top.PartNames)+2*len(top.LimbPairs))

	for i, name := range top.PartNames {
		labels[i] = name
	}

	for i, limb := range top.LimbPairs {

		nameA, okA := labels[limb.A]
		nameB, okB := labels[limb.B]

		if !okA || !okB {
			return LabelTable{}, errorf(ConfigurationError, op,
				"topology %s limb %d (%d,%d) references a part without a name",
				top.Name, i, limb.A, limb.B)
		}

		limbName := nameA + "->" + nameB
		channels := top.MapIdx[i]

		labels[channels.A] = limbName + "(X)"
		labels[channels.B] = limbName + "(Y)"
	}

	return labels, nil
}

// limbName strips the affinity component suffix from a label, eg:
// "Neck->RHip(X)" becomes "Neck->RHip"
func limbName(label string) string {

	if i := strings.Index(label, "("); i >= 0 {
		return label[:i]
	}

	return label
}

// LoadPartNames reads body part names from the given text file, one name
// per line in part index order.  Blank lines are skipped.
func LoadPartNames(file string) ([]string, error) {

	// open the file
	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening file: %w", err)
	}

	defer f.Close()

	scanner := bufio.NewScanner(f)

	var names []string

	// read and trim each line
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" {
			continue
		}

		names = append(names, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	return names, nil
}
