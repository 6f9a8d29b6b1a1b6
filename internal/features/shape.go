package features

import (
	"math"

	"github.com/ironsheep/lesion-features/internal/imaging"
	"github.com/ironsheep/lesion-features/internal/region"
)

// Circularity compares the lesion with a circle of equal area.
//
// # Algorithm
//
//  1. Keep the largest 8-connected component of mask
//  2. Take its centroid and area, and the radius floor(sqrt(area/π))
//  3. Build the disk of that radius around the centroid
//  4. Return the fraction of disk pixels covered by the component
//
// Disk pixels the lesion misses lower the score; lesion pixels outside the
// disk do not. The result lies in [0, 1] and is 1 for a filled disk. An empty
// mask or an empty disk gives 0.
func Circularity(mask *imaging.Mask) float64 {
	lesion := region.Largest(mask)
	row, col, area := region.Centroid(lesion)
	if area == 0 {
		return 0
	}

	radius := math.Floor(math.Sqrt(float64(area) / math.Pi))
	circle := region.Disk(mask.Width, mask.Height, row, col, radius)
	circleArea := circle.Area()
	if circleArea == 0 {
		return 0
	}
	return float64(region.Intersect(lesion, circle).Area()) / float64(circleArea)
}

// ShapeResult holds the shape descriptors and the boxes they were measured on.
type ShapeResult struct {
	Circularity float64    `json:"circularity"`
	IoU         float64    `json:"iou"`
	ImageBox    region.Box `json:"image_box"`
	MaskBox     region.Box `json:"mask_box"`
}

// BoundingBoxIoU returns the intersection over union of the inclusive
// bounding box of the nonzero image pixels and that of the mask.
func BoundingBoxIoU(img *imaging.Image, mask *imaging.Mask) float64 {
	return region.IoU(region.NonzeroBox(img), region.MaskBox(mask))
}

// Shape computes both shape descriptors.
func Shape(img *imaging.Image, mask *imaging.Mask) ShapeResult {
	imageBox := region.NonzeroBox(img)
	maskBox := region.MaskBox(mask)
	return ShapeResult{
		Circularity: Circularity(mask),
		IoU:         region.IoU(imageBox, maskBox),
		ImageBox:    imageBox,
		MaskBox:     maskBox,
	}
}
