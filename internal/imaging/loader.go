package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// ImageCache provides thread-safe caching of decoded image files.
//
// The cache stores decoded image.Image objects keyed by their file path. Once a
// file is loaded, subsequent Load() calls for the same path return the cached
// copy without disk I/O. Batch runs frequently pair many masks with the same
// full-field image, so the image side of a sample is usually a cache hit.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// Cached images remain in memory until explicitly removed via Evict() or Clear().
//
// # Example Usage
//
//	cache := imaging.NewImageCache(0)
//	sample, err := cache.LoadSample("case_001.png", "case_001_mask.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// Use sample.Image and sample.Mask...
type ImageCache struct {
	mu           sync.RWMutex
	images       map[string]image.Image
	maxDimension int
}

// NewImageCache creates an empty cache. When maxDimension is positive, samples
// whose longer side exceeds it are downscaled on load.
func NewImageCache(maxDimension int) *ImageCache {
	return &ImageCache{
		images:       make(map[string]image.Image),
		maxDimension: maxDimension,
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Parameters:
//   - path: File path to the image. Supported formats are PNG, JPEG, GIF and
//     TIFF. 16-bit grayscale PNG and TIFF files keep their depth.
//
// Returns:
//   - image.Image: The decoded image in its native color model.
//   - error: Non-nil if the file cannot be opened or decoded.
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// Sample is a loaded (image, mask) pair ready for feature extraction.
type Sample struct {
	Image     *Image
	Mask      *Mask
	ImagePath string
	MaskPath  string
}

// LoadSample loads the full image and its region mask.
//
// The image is converted to an intensity grid preserving its bit depth, and
// the mask is binarized so that every nonzero pixel is foreground. When the
// cache has a maximum dimension, both are downscaled by the same factor: the
// image with Lanczos resampling and the mask with nearest-neighbor sampling so
// it stays binary.
//
// Returns an error if either file cannot be decoded or if the two files do not
// share the same dimensions.
func (c *ImageCache) LoadSample(imagePath, maskPath string) (*Sample, error) {
	src, err := c.Load(imagePath)
	if err != nil {
		return nil, err
	}
	maskSrc, err := c.Load(maskPath)
	if err != nil {
		return nil, err
	}

	if src.Bounds().Size() != maskSrc.Bounds().Size() {
		return nil, fmt.Errorf("image %s is %v but mask %s is %v",
			imagePath, src.Bounds().Size(), maskPath, maskSrc.Bounds().Size())
	}

	img := FromImage(src)
	if w, h, ok := c.fitDimensions(src.Bounds().Dx(), src.Bounds().Dy()); ok {
		// Resampling goes through 8-bit NRGBA; the result is mapped back onto
		// the source depth.
		scale := img.Scale
		img = FromImage(imaging.Resize(img.ToGray(), w, h, imaging.Lanczos))
		for i := range img.Pix {
			img.Pix[i] = img.Pix[i] / img.Scale * scale
		}
		img.Scale = scale
		maskSrc = imaging.Resize(maskSrc, w, h, imaging.NearestNeighbor)
	}

	return &Sample{
		Image:     img,
		Mask:      MaskFromImage(maskSrc),
		ImagePath: imagePath,
		MaskPath:  maskPath,
	}, nil
}

// fitDimensions returns the downscaled size for a width x height sample, or
// ok=false when no resize is needed.
func (c *ImageCache) fitDimensions(width, height int) (int, int, bool) {
	if c.maxDimension <= 0 {
		return width, height, false
	}
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= c.maxDimension {
		return width, height, false
	}
	ratio := float64(c.maxDimension) / float64(longest)
	w := int(float64(width)*ratio + 0.5)
	h := int(float64(height)*ratio + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h, true
}

// SampleInfo describes an image file without converting its pixels.
type SampleInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the detected format from the file extension: "png", "jpeg",
	// "gif", "tiff" or "unknown".
	Format string `json:"format"`

	// BitDepth is 16 for 16-bit color models and 8 otherwise.
	BitDepth int `json:"bit_depth"`

	// Grayscale reports whether the file uses a single-channel color model.
	Grayscale bool `json:"grayscale"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadSampleInfo loads an image through the cache and returns its metadata.
func LoadSampleInfo(cache *ImageCache, path string) (*SampleInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".tif", ".tiff":
		format = "tiff"
	}

	depth := 8
	gray := false
	switch img.(type) {
	case *image.RGBA64, *image.NRGBA64:
		depth = 16
	case *image.Gray16:
		depth = 16
		gray = true
	case *image.Gray:
		gray = true
	}

	return &SampleInfo{
		Width:         img.Bounds().Dx(),
		Height:        img.Bounds().Dy(),
		Format:        format,
		BitDepth:      depth,
		Grayscale:     gray,
		FileSizeBytes: stat.Size(),
	}, nil
}
