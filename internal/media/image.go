package media

import (
	"fmt"
	"image"
	"math"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"autogallery/internal/logging"
)

const (
	// MaxImageDimension is the largest width or height decoded at full size.
	// Anything bigger is shrunk right after decoding.
	MaxImageDimension = 4096

	// MaxImagePixels caps width*height; ~20MP is ~80MB as RGBA.
	MaxImagePixels = 20_000_000
)

// detailKernel is the classic 3x3 "detail" sharpening kernel. With
// normalisation the weights sum to 1 so overall brightness is unchanged.
var detailKernel = [9]float64{
	0, -1, 0,
	-1, 10, -1,
	0, -1, 0,
}

// FitBox returns the size of a srcW x srcH image scaled to fit inside a
// maxW x maxH box with its aspect ratio kept. Whichever dimension binds is
// set to the box edge; the other is truncated. Images already inside the
// box keep their size. Both results are at least 1.
//
//	FitBox(400, 200, 178, 100) == (178, 89)
func FitBox(srcW, srcH, maxW, maxH int) (w, h int) {
	if srcW <= 0 || srcH <= 0 || maxW <= 0 || maxH <= 0 {
		return 0, 0
	}
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH
	}

	aspect := float64(srcW) / float64(srcH)
	if float64(maxW)/aspect > float64(maxH) {
		h = maxH
		w = int(float64(maxH) * aspect)
	} else {
		w = maxW
		h = int(float64(maxW) / aspect)
	}
	return max(w, 1), max(h, 1)
}

// ImageDimensions holds image width and height
type ImageDimensions struct {
	Width  int
	Height int
}

// GetImageDimensions reads only the image header.
func GetImageDimensions(path string) (*ImageDimensions, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	config, format, err := image.DecodeConfig(file)
	if err != nil {
		return nil, "", err
	}
	return &ImageDimensions{Width: config.Width, Height: config.Height}, format, nil
}

// LoadImageConstrained decodes path with EXIF auto-orientation, shrinking it
// right away if it exceeds maxDimension or maxPixels.
func LoadImageConstrained(path string, maxDimension, maxPixels int) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("image has zero size (%dx%d)", width, height)
	}
	if width <= maxDimension && height <= maxDimension && width*height <= maxPixels {
		return img, nil
	}

	targetW, targetH := FitBox(width, height, maxDimension, maxDimension)
	if px := targetW * targetH; px > maxPixels {
		scale := math.Sqrt(float64(maxPixels) / float64(px))
		targetW = max(int(float64(targetW)*scale), 1)
		targetH = max(int(float64(targetH)*scale), 1)
	}
	logging.Debug("constraining large image %s from %dx%d to %dx%d", path, width, height, targetW, targetH)
	return imaging.Resize(img, targetW, targetH, imaging.Lanczos), nil
}

// sharpen applies the detail kernel.
func sharpen(img image.Image) *image.NRGBA {
	return imaging.Convolve3x3(img, detailKernel, &imaging.ConvolveOptions{Normalize: true})
}
