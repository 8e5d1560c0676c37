/*
go-poserender renders the output of multi-person pose estimation networks
for real time visualization.  For each video frame one layer is selected
and blended over the frame: the skeleton of every detected person, the
heatmap of a single body part, all heatmaps combined, all Part Affinity
Fields combined, or the affinity field of a single limb.

The selected layer is controlled by a single integer, the element to
render, which a UI or control server may change at any time.  Element 0 is
the skeleton, elements 1 to the number of body parts plus one are the body
part and background heatmaps, followed by the combined heatmaps, the
combined affinity fields and one element per limb.

Keypoints are uploaded to a device buffer sized for the maximum number of
people, allocated once per renderer.  Drawing is performed by Kernels, the
render subpackage provides a gocv implementation.

See example code and usage in the example subdirectory.
*/
package poserender
