// Package render draws the derived masks of a sample for human inspection.
//
// Every spiculation strategy measures the gradient field inside a different
// mask (the lesion, its border band, the opened inverse). Layers collects
// those masks, together with the Canny edges, Hough segments and snake
// contours when a boundary result is available, and assigns each a distinct
// color. Compose paints them over an 8-bit preview of the scan; Export writes
// the individual masks and the overlay as PNG files.
//
// Filled layers are alpha blended so the underlying tissue stays visible.
// Stroked layers are thickened with a morphological dilation so one-pixel
// contours remain readable on large scans.
package render
