// Package surfacenets extracts triangle meshes from 32³ density chunks using
// naive surface nets.
//
// Each cell whose eight corners do not all share a sign produces exactly one
// vertex, placed at the mean of the zero crossings along its edges. Cells are
// visited in a fixed raster order (x outer, z inner), so when a cell is
// meshed its neighbours at x−1, y−1 and z−1 have already been emitted and
// their vertex indices are still held in a two-slice scratch grid. The new
// vertex is joined to those neighbours with up to three quads.
//
// A Mesher owns its scratch grid and output lists and reuses them between
// passes. Meshers share nothing but the read-only edge table, so any number
// of them may run in parallel on distinct chunks.
package surfacenets
