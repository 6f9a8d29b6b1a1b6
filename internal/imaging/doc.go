// Package imaging provides the pixel containers and low-level image operations
// shared by the feature pipeline.
//
// The package converts decoded image files into two grid types:
//   - Image: a single-channel float64 intensity grid that remembers the
//     full-scale value of its source depth (Scale)
//   - Mask: a binary region-of-interest grid with the same layout
//
// On top of those it offers separable Gaussian smoothing with selectable
// border handling, percentile-based intensity rescaling, a caching loader for
// (image, mask) sample pairs, and PNG crop previews.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: column (0 = leftmost pixel)
//   - Y: row (0 = topmost pixel)
//   - Grids are stored row-major: index = y*Width + x
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Bit Depth
//
// Grayscale sources keep their native values: an 8-bit file yields values in
// [0, 255] with Scale 255 and a 16-bit file yields [0, 65535] with Scale 65535.
// Algorithms that need the normalized range call Image.Float, which divides by
// Scale. Color sources are reduced to BT.601 luminance.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Image and Mask values are
// never mutated by the feature algorithms, so a single sample may be shared by
// concurrent readers.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Coordinates outside image bounds
//   - Image and mask files of different dimensions
//   - File I/O errors during image loading
//   - Encoding errors during image output
package imaging
