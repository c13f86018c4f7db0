package analyzer

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	apperrors "github.com/anime-shed/brand-inspector-go/internal/errors"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var errEmptyImage = errors.New("image has no pixels")

// ToGrayscale decodes raw image bytes in any registered format and renders
// them to a single-channel PixelBuffer.
func ToGrayscale(raw []byte) (PixelBuffer, error) {
	if len(raw) == 0 {
		return nil, apperrors.NewDecodeError("failed to decode image", errEmptyImage)
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.NewDecodeError("failed to decode image", err)
	}
	return GrayscaleFromImage(img)
}

// GrayscaleFromImage converts a decoded image to a PixelBuffer. Gray images
// are copied as is; everything else goes through Luma709.
func GrayscaleFromImage(img image.Image) (PixelBuffer, error) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, apperrors.NewDecodeError("failed to decode image", errEmptyImage)
	}

	width, height := bounds.Dx(), bounds.Dy()
	pixels := make(PixelBuffer, 0, width*height)

	if gray, ok := img.(*image.Gray); ok {
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			start := gray.PixOffset(bounds.Min.X, y)
			pixels = append(pixels, gray.Pix[start:start+width]...)
		}
		return pixels, nil
	}

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			pixels = append(pixels, Luma709(c.R, c.G, c.B))
		}
	}
	return pixels, nil
}

// Luma709 weights 8-bit RGB with the Rec. 709 coefficients
// (0.2126, 0.7152, 0.0722) in 15-bit fixed point. Alpha is ignored.
func Luma709(r, g, b uint8) uint8 {
	return uint8((uint32(r)*6966 + uint32(g)*23436 + uint32(b)*2366) >> 15)
}
