// Package graph defines the scene graph produced by evaluating a surfnets
// script. The scene graph is an immutable DAG of primitives, transforms,
// boolean operations and groups; each named part is tessellated into its
// own mesh.
package graph
