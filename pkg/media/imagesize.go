package media

import (
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSize reads only the header of an image file, and returns its dimensions
func ImageSize(filename string) (width, height int, err error) {
	f, err := os.Open(filename)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("Failed to read image header of %v: %w", filename, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, 0, fmt.Errorf("Invalid %v image dimensions %v x %v in %v", format, cfg.Width, cfg.Height, filename)
	}
	return cfg.Width, cfg.Height, nil
}
