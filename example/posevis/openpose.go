package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/swdee/go-poserender/pose"
)

// openPoseFrame is the keypoint JSON written per frame by OpenPose with
// --write_json
type openPoseFrame struct {
	Version float32 `json:"version"`
	People  []struct {
		PoseKeypoints2D []float32 `json:"pose_keypoints_2d"`
	} `json:"people"`
}

// readKeypoints reads an OpenPose keypoint JSON file, coordinates are scaled
// by scaleX, scaleY.  People beyond pose.MaxPeople are dropped.
func readKeypoints(file string, parts int, scaleX, scaleY float32) (pose.KeypointSet, error) {

	data, err := os.ReadFile(file)

	if err != nil {
		return pose.KeypointSet{}, fmt.Errorf("error reading keypoints: %w", err)
	}

	return parseKeypoints(data, parts, scaleX, scaleY)
}

// parseKeypoints decodes OpenPose keypoint JSON
func parseKeypoints(data []byte, parts int, scaleX, scaleY float32) (pose.KeypointSet, error) {

	var frame openPoseFrame

	if err := json.Unmarshal(data, &frame); err != nil {
		return pose.KeypointSet{}, fmt.Errorf("error decoding keypoints: %w", err)
	}

	people := min(len(frame.People), pose.MaxPeople)
	out := make([]float32, 0, people*parts*3)

	for i := 0; i < people; i++ {
		kps := frame.People[i].PoseKeypoints2D

		if len(kps) != parts*3 {
			return pose.KeypointSet{}, fmt.Errorf("person %d has %d values, expected %d parts x 3",
				i, len(kps), parts)
		}

		for p := 0; p < parts; p++ {
			out = append(out, kps[p*3]*scaleX, kps[p*3+1]*scaleY, kps[p*3+2])
		}
	}

	return pose.NewKeypointSet(out, people, parts)
}

// keypointFiles returns the keypoint JSON files in frame order, file may be
// a single JSON file or a directory of per frame files
func keypointFiles(file string) ([]string, error) {

	info, err := os.Stat(file)

	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{file}, nil
	}

	entries, err := os.ReadDir(file)

	if err != nil {
		return nil, err
	}

	var files []string

	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			files = append(files, filepath.Join(file, e.Name()))
		}
	}

	// openpose zero pads the frame number so name order is frame order
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("no keypoint json files in %s", file)
	}

	return files, nil
}
