// Package detection provides the boundary-tracing and texture algorithms used
// to describe a lesion: Canny edges, the Hough line transform, the active
// contour (snake) and the Gabor filter bank.
//
// # Boundary Tracing
//
// Two descriptors follow the lesion outline:
//
//   - Hough line count: the image is binarized at its mean, Canny edges are
//     voted into a (distance, angle) accumulator and the prominent peaks are
//     counted. Spiculated lesions radiate straight structures and produce more
//     peaks.
//   - Snake displacement: a closed contour starts on a fixed circle and is
//     pulled toward strong edges of the smoothed image. The mean distance each
//     vertex travels measures how far the outline departs from the circle.
//
// # Texture
//
// GaborBank builds real Gabor kernels for every (orientation, scale,
// frequency) combination. GaborResponses filters the image with each kernel,
// wrapping around the borders, and reports the mean and variance of every
// response.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X (column) increases rightward
//   - Y (row) increases downward
//
// Snake vertices are sub-pixel (row, col) pairs; Hough lines satisfy
// x*cos(angle) + y*sin(angle) = distance.
//
// # Performance Considerations
//
// The snake inverts an n x n matrix once and then performs two dense
// matrix-vector products per iteration. Gabor filtering costs one 2-D FFT of
// the image plus two per kernel. Both scale with the full frame, so large
// images should be downscaled by the loader first.
package detection
