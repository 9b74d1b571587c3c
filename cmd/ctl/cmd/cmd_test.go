package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jpfielding/dicomkit/pkg/dicom/codec"
	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dicomdir"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRoot(context.Background(), "abc123")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeSample(t *testing.T) string {
	t.Helper()
	ds, err := dataset.New(transfer.ExplicitVRLittleEndian)
	require.NoError(t, err)
	require.NoError(t, ds.SetString(tag.SOPClassUID, "1.2.840.10008.5.1.4.1.1.7"))
	require.NoError(t, ds.SetString(tag.SOPInstanceUID, "1.2.3.4"))
	require.NoError(t, ds.SetString(tag.PatientID, "PAT-7"))
	require.NoError(t, ds.SetString(tag.Modality, "OT"))
	img, err := pixel.NewImage(16, 8, pixel.DepthU16, pixel.Monochrome2, 11)
	require.NoError(t, err)
	for y := uint32(0); y < 8; y++ {
		for x := uint32(0); x < 16; x++ {
			img.Set(x, y, 0, int64(x*y))
		}
	}
	require.NoError(t, ds.SetImage(0, img))
	path := filepath.Join(t.TempDir(), "sample.dcm")
	require.NoError(t, codec.WriteFile(path, ds))
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "abc123\n", out)
}

func TestDump(t *testing.T) {
	path := writeSample(t)
	out, err := run(t, "dump", path)
	require.NoError(t, err)
	assert.True(t, json.Valid([]byte(out)), out)
	assert.Contains(t, out, "PAT-7")

	out, err = run(t, "dump", "--format", "text", "--uri", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PAT-7")

	_, err = run(t, "dump")
	assert.Error(t, err)
}

func TestAnalyze(t *testing.T) {
	path := writeSample(t)
	out, err := run(t, "analyze", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Rows: 8")
	assert.Contains(t, out, "Columns: 16")
	assert.Contains(t, out, "NumberOfFrames: 1")
	assert.Contains(t, out, "min=0, max=105")

	bin := filepath.Join(t.TempDir(), "frame.bin")
	_, err = run(t, "analyze", path, "--dump-frame", "0", "--out", bin)
	require.NoError(t, err)
	raw, err := os.ReadFile(bin)
	require.NoError(t, err)
	assert.Len(t, raw, 16*8*2)

	_, err = run(t, "analyze", path, "--dump-frame", "4")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	path := writeSample(t)
	out := filepath.Join(t.TempDir(), "frame.png")
	_, err := run(t, "render", path, "--out", out, "--auto", "--scale", "2", "--function", "sigmoid")
	require.NoError(t, err)
	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)

	_, err = run(t, "render", path, "--out", out, "--voi", "10")
	assert.Error(t, err)
	_, err = run(t, "render", path, "--out", out, "--voi", "10,20")
	require.NoError(t, err)
}

func TestConvert(t *testing.T) {
	path := writeSample(t)
	dir := t.TempDir()
	for _, tc := range []struct {
		syntax string
		want   transfer.Syntax
	}{
		{"explicit-be", transfer.ExplicitVRBigEndian},
		{"rle", transfer.RLELossless},
		{string(transfer.ImplicitVRLittleEndian), transfer.ImplicitVRLittleEndian},
		{"deflate", transfer.DeflatedExplicitVR},
	} {
		t.Run(tc.syntax, func(t *testing.T) {
			out := filepath.Join(dir, tc.syntax+".dcm")
			_, err := run(t, "convert", path, out, "--syntax", tc.syntax)
			require.NoError(t, err)
			ds, err := codec.ReadFile(out)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ds.TransferSyntax())
			img, err := ds.GetImage(0)
			require.NoError(t, err)
			assert.Equal(t, int64(105), img.At(15, 7, 0))
		})
	}

	_, err := run(t, "convert", path, filepath.Join(dir, "x.dcm"), "--syntax", "1.2.3")
	assert.Error(t, err)
	_, err = run(t, "convert", path, filepath.Join(dir, "x.dcm"), "--syntax", string(transfer.JPEG2000))
	assert.Error(t, err)
}

func TestDicomDir(t *testing.T) {
	d, err := dicomdir.New()
	require.NoError(t, err)
	p, err := d.NewEntry(dicomdir.Patient)
	require.NoError(t, err)
	require.NoError(t, p.DataSet().SetString(tag.PatientID, "PAT-7"))
	img, err := d.NewEntry(dicomdir.Image)
	require.NoError(t, err)
	require.NoError(t, img.SetFileParts("IMAGES", "IM0"))
	require.NoError(t, d.SetFirstRoot(p))
	require.NoError(t, p.SetFirstChild(img))
	path := filepath.Join(t.TempDir(), "DICOMDIR")
	require.NoError(t, d.WriteFile(path))

	out, err := run(t, "dicomdir", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PATIENT PAT-7\n")
	assert.Contains(t, out, "  IMAGE "+filepath.Join(filepath.Dir(path), "IMAGES", "IM0")+"\n")
}
