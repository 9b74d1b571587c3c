package render

import (
	"bytes"
	"image"
	"path/filepath"
	"testing"

	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
	"github.com/jpfielding/dicomkit/pkg/dicom/transforms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ramp stores one 16x8 MONOCHROME2 frame holding 0..127
func ramp(t *testing.T) *dataset.DataSet {
	t.Helper()
	img, err := pixel.NewImage(16, 8, pixel.DepthU16, pixel.Monochrome2, 11)
	require.NoError(t, err)
	for y := uint32(0); y < 8; y++ {
		for x := uint32(0); x < 16; x++ {
			img.Set(x, y, 0, int64(x+y*16))
		}
	}
	ds, err := dataset.New(transfer.ExplicitVRLittleEndian)
	require.NoError(t, err)
	require.NoError(t, ds.SetImage(0, img))
	return ds
}

func gray16(t *testing.T, img image.Image) *image.Gray16 {
	t.Helper()
	g, ok := img.(*image.Gray16)
	require.True(t, ok, "got %T", img)
	return g
}

func TestFrame_Auto(t *testing.T) {
	out, err := Frame(ramp(t), Options{Auto: true})
	require.NoError(t, err)
	g := gray16(t, out)
	assert.Equal(t, image.Rect(0, 0, 16, 8), g.Bounds())
	assert.Equal(t, uint16(0), g.Gray16At(0, 0).Y)
	assert.Equal(t, uint16(65535), g.Gray16At(15, 7).Y)
	assert.Less(t, g.Gray16At(3, 2).Y, g.Gray16At(4, 2).Y)
}

func TestFrame_ExplicitWindow(t *testing.T) {
	out, err := Frame(ramp(t), Options{VOI: &transforms.VOIDescription{Center: 10, Width: 1}})
	require.NoError(t, err)
	g := gray16(t, out)
	assert.Equal(t, uint16(0), g.Gray16At(9, 0).Y)
	assert.Equal(t, uint16(65535), g.Gray16At(10, 0).Y)
}

func TestFrame_StoredWindow(t *testing.T) {
	ds := ramp(t)
	require.NoError(t, ds.SetDoubles(tag.WindowCenter, 20))
	require.NoError(t, ds.SetDoubles(tag.WindowWidth, 1))
	out, err := Frame(ds, Options{})
	require.NoError(t, err)
	g := gray16(t, out)
	assert.Equal(t, uint16(0), g.Gray16At(3, 1).Y)
	assert.Equal(t, uint16(65535), g.Gray16At(4, 1).Y)

	// auto ignores the stored window
	out, err = Frame(ds, Options{Auto: true})
	require.NoError(t, err)
	mid := gray16(t, out).Gray16At(4, 1).Y
	assert.Greater(t, mid, uint16(0))
	assert.Less(t, mid, uint16(65535))
}

func TestFrame_Function(t *testing.T) {
	_, err := Frame(ramp(t), Options{Auto: true, Function: "cubic"})
	assert.True(t, dcmerr.Is(err, dcmerr.DataHandlerInvalidData))

	out, err := Frame(ramp(t), Options{Auto: true, Function: "sigmoid"})
	require.NoError(t, err)
	g := gray16(t, out)
	assert.Greater(t, g.Gray16At(0, 0).Y, uint16(0))
	assert.Less(t, g.Gray16At(15, 7).Y, uint16(65535))
}

func TestFrame_Scale(t *testing.T) {
	out, err := Frame(ramp(t), Options{Auto: true, Scale: 2})
	require.NoError(t, err)
	assert.Equal(t, 32, out.Bounds().Dx())
	assert.Equal(t, 16, out.Bounds().Dy())
}

func TestFrame_Color(t *testing.T) {
	img, err := pixel.NewImage(4, 2, pixel.DepthU8, pixel.RGB, 7)
	require.NoError(t, err)
	img.Set(1, 0, 0, 255)
	ds, err := dataset.New(transfer.ExplicitVRLittleEndian)
	require.NoError(t, err)
	require.NoError(t, ds.SetImage(0, img))

	out, err := Frame(ds, Options{})
	require.NoError(t, err)
	rgba, ok := out.(*image.RGBA)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, uint8(255), rgba.RGBAAt(1, 0).R)
	assert.Equal(t, uint8(0), rgba.RGBAAt(0, 0).R)
}

func TestFrame_MissingFrame(t *testing.T) {
	_, err := Frame(ramp(t), Options{Frame: 3})
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	out, err := Frame(ramp(t), Options{Auto: true, Scale: 0.5})
	require.NoError(t, err)
	for _, format := range []string{"png", ".jpg", "bmp", "TIFF"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, out, format))
			back, _, err := image.Decode(&buf)
			require.NoError(t, err)
			assert.Equal(t, out.Bounds().Size(), back.Bounds().Size())
		})
	}
	assert.True(t, dcmerr.Is(Encode(&bytes.Buffer{}, out, "gif"), dcmerr.CodecWrongFormat))
}

func TestWriteFile(t *testing.T) {
	out, err := Frame(ramp(t), Options{Auto: true})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "frame.png")
	require.NoError(t, WriteFile(path, out))
}
