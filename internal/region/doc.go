// Package region derives secondary masks and geometric measurements from a
// lesion's region-of-interest mask.
//
// # Derived Masks
//
// The spiculation descriptors compare gradient statistics over several views
// of the same lesion:
//
//   - Border band: pixels inside the region whose Euclidean distance to the
//     nearest background pixel lies in (0, width]
//   - Inverse: every pixel outside the region
//   - Opened inverse: the inverse after a grey opening with a disk footprint,
//     which strips thin protrusions of background that reach into the lesion
//
// Every derived mask keeps the dimensions of its input.
//
// # Distance Transform
//
// DistanceTransform is exact. It uses the separable lower-envelope algorithm
// of Felzenszwalb and Huttenlocher, running one pass over the columns and one
// over the rows, so the cost is linear in the number of pixels.
//
// # Connected Components
//
// Label assigns 8-connected component labels. Largest keeps only the biggest
// component, which is how multi-fragment segmentations are reduced to a
// single lesion before shape measurements.
//
// # Coordinate System
//
// Masks are row-major. Box fields use inclusive row and column bounds.
package region
