package extraction

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/heic"
)

// sharpenKernel boosts edges before thresholding; it sums to 16 and is normalized
var sharpenKernel = [9]float64{
	-2, -2, -2,
	-2, 32, -2,
	-2, -2, -2,
}

// loadImage decodes a JPEG or PNG file, honouring EXIF orientation.
// Phones often save HEIC payloads with a .jpg name, so the content is sniffed first.
func loadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if isHEICFormat(data) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, err
	}
	return img, nil
}

// isHEICFormat checks for an ftyp box with a HEIC-related brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// Preprocess prepares an image for OCR. The steps run in a fixed order:
// grayscale, sharpen, then binarize against threshold.
func Preprocess(img image.Image, threshold uint8) *image.Gray {
	gray := imaging.Grayscale(img)
	sharp := imaging.Convolve3x3(gray, sharpenKernel, &imaging.ConvolveOptions{Normalize: true})
	return binarize(sharp, threshold)
}

func binarize(src *image.NRGBA, threshold uint8) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			// channels are equal after Grayscale
			v := src.Pix[y*src.Stride+x*4]
			if v < threshold {
				dst.SetGray(x, y, color.Gray{Y: 0})
			} else {
				dst.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return dst
}
