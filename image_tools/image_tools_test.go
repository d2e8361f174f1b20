package image_tools

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestBase64RoundTrip(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff}

	encoded := EncodeBase64(data)
	decoded, err := DecodeBase64(encoded)
	require.NoError(t, err)
	assert.Equal(t, data, decoded)

	_, err = DecodeBase64("not base64!!!")
	require.Error(t, err)
}

func TestEnsureMultipleOf64(t *testing.T) {
	tests := []struct {
		value int
		want  int
	}{
		{1, 64},
		{63, 64},
		{64, 64},
		{65, 64},
		{100, 64},
		{128, 128},
		{832, 832},
		{1217, 1216},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EnsureMultipleOf64(tt.value), "value %d", tt.value)
	}
}

func TestNormalizeToPNG(t *testing.T) {
	jpegData := encodeJPEG(t, solidImage(30, 20))

	pngData, err := NormalizeToPNG(jpegData)
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(pngData))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	_, err = NormalizeToPNG([]byte("not an image"))
	require.Error(t, err)
}

func TestResizeToMultipleOf64(t *testing.T) {
	jpegData := encodeJPEG(t, solidImage(100, 70))

	pngData, err := ResizeToMultipleOf64(jpegData)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(pngData))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}

func TestResizeToMultipleOf64_AlreadyAligned(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solidImage(128, 64)))

	pngData, err := ResizeToMultipleOf64(buf.Bytes())
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(pngData))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 64, img.Bounds().Dy())
}

func TestSaveImage_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "2024", "03", "img.png")

	require.NoError(t, SaveImage([]byte("data"), path))

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), saved)
}

func TestExtractZipImage(t *testing.T) {
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)

	entry, err := writer.Create("image_0.png")
	require.NoError(t, err)
	_, err = entry.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	data, err := ExtractZipImage(buf.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("png bytes"), data)

	_, err = ExtractZipImage(buf.Bytes(), 1)
	require.EqualError(t, err, "ZIP中未找到image_1.png")

	_, err = ExtractZipImage([]byte("not a zip"), 0)
	require.Error(t, err)
}
