package pose

// pairs converts a flat list of indexes into pairs, eg: {1,2, 1,5} becomes
// {{1,2}, {1,5}}
func pairs(flat ...int) []Pair {

	if len(flat)%2 != 0 {
		panic("pose: odd number of indexes given for pairs")
	}

	out := make([]Pair, 0, len(flat)/2)

	for i := 0; i < len(flat); i += 2 {
		out = append(out, Pair{A: flat[i], B: flat[i+1]})
	}

	return out
}

var (
	// cocoParts are the COCO body parts followed by the background channel
	cocoParts = []string{
		"Nose", "Neck", "RShoulder", "RElbow", "RWrist", "LShoulder", "LElbow",
		"LWrist", "RHip", "RKnee", "RAnkle", "LHip", "LKnee", "LAnkle", "REye",
		"LEye", "REar", "LEar", "Background",
	}

	cocoLimbs = pairs(1, 2, 1, 5, 2, 3, 3, 4, 5, 6, 6, 7, 1, 8, 8, 9, 9, 10, 1, 11,
		11, 12, 12, 13, 1, 0, 0, 14, 14, 16, 0, 15, 15, 17, 2, 16, 5, 17)

	cocoMapIdx = pairs(31, 32, 39, 40, 33, 34, 35, 36, 41, 42, 43, 44, 19, 20, 21,
		22, 23, 24, 25, 26, 27, 28, 29, 30, 47, 48, 49, 50, 53, 54, 51, 52, 55, 56,
		37, 38, 45, 46)

	// the ear to shoulder limbs are only used for person assembly and are
	// not drawn
	cocoRender = cocoLimbs[:17]

	// mpiParts are the MPII body parts followed by the background channel
	mpiParts = []string{
		"Head", "Neck", "RShoulder", "RElbow", "RWrist", "LShoulder", "LElbow",
		"LWrist", "RHip", "RKnee", "RAnkle", "LHip", "LKnee", "LAnkle", "Chest",
		"Background",
	}

	mpiLimbs = pairs(0, 1, 1, 2, 2, 3, 3, 4, 1, 5, 5, 6, 6, 7, 1, 14, 14, 8, 8, 9,
		9, 10, 14, 11, 11, 12, 12, 13)

	mpiMapIdx = pairs(16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30,
		31, 32, 33, 34, 35, 36, 37, 38, 39, 40, 41, 42, 43)

	// registry holds the immutable topology of every supported model,
	// indexed by Model
	registry = [numberModels]*Topology{
		COCO: {
			Name:            COCO.String(),
			NumberBodyParts: 18,
			PartNames:       cocoParts,
			LimbPairs:       cocoLimbs,
			MapIdx:          cocoMapIdx,
			RenderPairs:     cocoRender,
			Eyes:            []int{14, 15},
		},
		MPI: {
			Name:            MPI.String(),
			NumberBodyParts: 15,
			PartNames:       mpiParts,
			LimbPairs:       mpiLimbs,
			MapIdx:          mpiMapIdx,
			RenderPairs:     mpiLimbs,
		},
		MPI4Layers: {
			Name:            MPI4Layers.String(),
			NumberBodyParts: 15,
			PartNames:       mpiParts,
			LimbPairs:       mpiLimbs,
			MapIdx:          mpiMapIdx,
			RenderPairs:     mpiLimbs,
		},
	}
)
