package transform

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestTransformBoundsLandscape(t *testing.T) {
	tr := NewJPEG(&Config{MaxDimension: 100, JPEGQuality: 80})

	out, err := tr.Transform(encodeJPEG(t, 300, 200), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.ContentType)

	w, h := decodeDims(t, out.Data)
	assert.Equal(t, 100, w)
	assert.InDelta(t, 67, h, 1)
}

func TestTransformBoundsPortrait(t *testing.T) {
	tr := NewJPEG(&Config{MaxDimension: 100, JPEGQuality: 80})

	out, err := tr.Transform(encodeJPEG(t, 200, 400), "image/jpeg")
	require.NoError(t, err)

	w, h := decodeDims(t, out.Data)
	assert.Equal(t, 100, h)
	assert.InDelta(t, 50, w, 1)
}

func TestTransformNeverUpscales(t *testing.T) {
	tr := NewJPEG(&Config{MaxDimension: 1920, JPEGQuality: 80})

	out, err := tr.Transform(encodeJPEG(t, 64, 48), "image/jpeg")
	require.NoError(t, err)

	w, h := decodeDims(t, out.Data)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
}

func TestTransformReencodesPNGAsJPEG(t *testing.T) {
	tr := NewJPEG(DefaultConfig())

	out, err := tr.Transform(encodePNG(t, 32, 32), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", out.ContentType)

	_, err = jpeg.Decode(bytes.NewReader(out.Data))
	assert.NoError(t, err)
}

func TestTransformRejectsGarbage(t *testing.T) {
	tr := NewJPEG(DefaultConfig())

	_, err := tr.Transform([]byte("not an image"), "image/jpeg")
	assert.Error(t, err)
}

func TestPassthroughReturnsInputUnchanged(t *testing.T) {
	tr := NewPassthrough()

	data := []byte{0x01, 0x02, 0x03}
	out, err := tr.Transform(data, "image/png")
	require.NoError(t, err)
	assert.Equal(t, data, out.Data)
	assert.Equal(t, "image/png", out.ContentType)
}
