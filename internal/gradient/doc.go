// Package gradient estimates per-pixel intensity gradients and summarizes how
// gradient energy is spread across orientations.
//
// # Operators
//
// Two 3x3 derivative operators are available. Both smooth along the edge and
// differentiate across it:
//
//   - Sobel: smoothing weights [1, 2, 1] / 4
//   - Scharr: smoothing weights [3, 10, 3] / 16, closer to rotation invariant
//
// The horizontal-edge response compares the row below with the row above; the
// vertical-edge response compares the column to the right with the column to
// the left. Orientation is atan2(vertical, horizontal) in radians and
// magnitude is their Euclidean norm. Images are scaled to [0, 1] by their bit
// depth before filtering, so statistics do not depend on whether a sample was
// stored with 8 or 16 bits.
//
// # Masking
//
// Responses near a region boundary mix pixels from both sides. Compute
// therefore discards responses whose 3x3 neighborhood is not fully inside the
// mask (the mask is eroded by a 3x3 square, with the frame counting as
// background). Without a mask only the outermost rows and columns are
// discarded.
//
// # Dispersion
//
// Dispersion groups pixels by orientation, sums gradient magnitude per group,
// normalizes the sums by the mean magnitude, and returns their sample standard
// deviation. A lesion with radiating spicules concentrates energy in many
// distinct orientations with uneven weight, which raises the statistic.
package gradient
