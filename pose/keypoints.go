package pose

import "fmt"

// KeyPoint is a single body part location and its confidence score
type KeyPoint struct {
	X     float32
	Y     float32
	Score float32
}

// KeypointSet is a dense array of People x Parts x 3 floats holding the
// (x, y, confidence) of every body part of every detected person
type KeypointSet struct {
	Data   []float32
	People int
	Parts  int
}

// NewKeypointSet wraps the dense keypoint data, the length of data must be
// people*parts*3
func NewKeypointSet(data []float32, people, parts int) (KeypointSet, error) {

	if people < 0 || parts < 0 {
		return KeypointSet{}, fmt.Errorf("invalid keypoint set dimensions %dx%d", people, parts)
	}

	if len(data) != people*parts*3 {
		return KeypointSet{}, fmt.Errorf("keypoint data length %d does not match %d people x %d parts x 3",
			len(data), people, parts)
	}

	return KeypointSet{Data: data, People: people, Parts: parts}, nil
}

// FromKeyPoints flattens per person keypoints into a KeypointSet.  Every
// person must have the same number of parts.
func FromKeyPoints(people [][]KeyPoint) (KeypointSet, error) {

	if len(people) == 0 {
		return KeypointSet{}, nil
	}

	parts := len(people[0])
	data := make([]float32, 0, len(people)*parts*3)

	for i, person := range people {
		if len(person) != parts {
			return KeypointSet{}, fmt.Errorf("person %d has %d parts, expected %d",
				i, len(person), parts)
		}

		for _, kp := range person {
			data = append(data, kp.X, kp.Y, kp.Score)
		}
	}

	return KeypointSet{Data: data, People: len(people), Parts: parts}, nil
}

// Empty reports whether the set holds no keypoint data
func (k KeypointSet) Empty() bool {
	return len(k.Data) == 0
}

// At returns the keypoint of the given person and part
func (k KeypointSet) At(person, part int) KeyPoint {
	i := (person*k.Parts + part) * 3
	return KeyPoint{X: k.Data[i], Y: k.Data[i+1], Score: k.Data[i+2]}
}
