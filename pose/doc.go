/*
Package pose holds the static keypoint topologies of the supported pose
estimation networks and the keypoint data types passed between pose
extraction and rendering.

Each Model has one immutable Topology describing its body part names, the
limbs connecting body parts and the network output channels of each limb's
Part Affinity Field.
*/
package pose
