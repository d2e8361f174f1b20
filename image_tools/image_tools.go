package image_tools

import (
	"archive/zip"
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/webp"
)

func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func DecodeBase64(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}

// EnsureMultipleOf64 floors a dimension to the nearest multiple of 64,
// never going below 64.
func EnsureMultipleOf64(value int) int {
	result := (value / 64) * 64
	if result == 0 {
		result = 64
	}
	return result
}

// NormalizeToPNG decodes any supported image format and re-encodes it as
// PNG, the only format the generation endpoint accepts for image inputs.
func NormalizeToPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return encodePNG(img)
}

// ResizeToMultipleOf64 decodes an image, scales it down to dimensions that
// are multiples of 64 and re-encodes it as PNG. Images that already fit are
// only normalized.
func ResizeToMultipleOf64(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	targetWidth := EnsureMultipleOf64(width)
	targetHeight := EnsureMultipleOf64(height)

	if targetWidth == width && targetHeight == height {
		return encodePNG(img)
	}

	resized := image.NewNRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Src, nil)
	return encodePNG(resized)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveImage writes image bytes to path, creating parent directories as
// needed.
func SaveImage(data []byte, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ExtractZipImage pulls image_<index>.png out of a ZIP archive.
func ExtractZipImage(zipData []byte, index int) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(zipData), int64(len(zipData)))
	if err != nil {
		return nil, err
	}

	name := fmt.Sprintf("image_%d.png", index)
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	return nil, fmt.Errorf("ZIP中未找到%s", name)
}
