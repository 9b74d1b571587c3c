// Package render turns a frame of a data set into a displayable image.Image:
// modality rescale, a VOI window for monochrome images or a conversion to
// RGB for color ones, then an optional resize.
package render

import (
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/dcmerr"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/transforms"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// Options select the frame and the presentation
type Options struct {
	Frame uint32
	// VOI overrides the windows stored in the data set
	VOI *transforms.VOIDescription
	// Auto windows the full range of the frame, or the Percentile range when
	// set, ignoring stored windows
	Auto       bool
	Percentile [2]float64
	// Function replaces the VOI function when not empty
	Function string
	// Scale resizes the output; 0 and 1 keep the frame size
	Scale float64
}

// Frame renders one frame of ds
func Frame(ds *dataset.DataSet, opts Options) (image.Image, error) {
	img, err := ds.GetModalityImage(opts.Frame)
	if err != nil {
		return nil, err
	}
	if pixel.IsMonochrome(img.ColorSpace()) {
		voi, err := pickVOI(ds, img, opts)
		if err != nil {
			return nil, err
		}
		slog.Debug("windowing", "frame", opts.Frame, "center", voi.Center, "width", voi.Width, "function", voi.Function)
		if img, err = transforms.Apply(transforms.NewVOILUT(voi), img); err != nil {
			return nil, err
		}
	} else if img.ColorSpace() != pixel.RGB {
		t, err := transforms.GetTransform(img.ColorSpace(), pixel.RGB)
		if err != nil {
			return nil, err
		}
		if img, err = transforms.Apply(t, img); err != nil {
			return nil, err
		}
	}
	out, err := pixel.ToStdImage(img)
	if err != nil {
		return nil, err
	}
	if opts.Scale > 0 && opts.Scale != 1 {
		w := int(float64(out.Bounds().Dx())*opts.Scale + 0.5)
		if w < 1 {
			w = 1
		}
		out = imaging.Resize(out, w, 0, imaging.Lanczos)
	}
	return out, nil
}

func pickVOI(ds *dataset.DataSet, img *pixel.Image, opts Options) (transforms.VOIDescription, error) {
	var voi transforms.VOIDescription
	switch {
	case opts.VOI != nil:
		voi = *opts.VOI
	case opts.Auto && opts.Percentile != [2]float64{}:
		d, err := transforms.PercentileVOI(img, 0, 0, img.Width(), img.Height(), opts.Percentile[0], opts.Percentile[1])
		if err != nil {
			return voi, err
		}
		voi = d
	default:
		stored, err := ds.GetVOIs()
		if err != nil {
			return voi, err
		}
		if len(stored) > 0 && !opts.Auto {
			voi = stored[0]
			break
		}
		if voi, err = transforms.OptimalVOI(img, 0, 0, img.Width(), img.Height()); err != nil {
			return voi, err
		}
	}
	if opts.Function != "" {
		fn, err := transforms.ParseVOIFunction(opts.Function)
		if err != nil {
			return voi, err
		}
		voi.Function = fn
	}
	return voi, nil
}

// Encode writes img as png, jpeg, bmp or tiff
func Encode(w io.Writer, img image.Image, format string) error {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "png", "":
		return png.Encode(w, img)
	case "jpg", "jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case "bmp":
		return bmp.Encode(w, img)
	case "tif", "tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	}
	return dcmerr.New(dcmerr.CodecWrongFormat, "unknown image format %q", format)
}

// WriteFile encodes img in the format named by the extension of path
func WriteFile(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return dcmerr.FromIO(err, dcmerr.StreamOpen, path)
	}
	if err := Encode(f, img, filepath.Ext(path)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
