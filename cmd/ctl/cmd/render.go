package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/jpfielding/dicomkit/pkg/dicom/codec"
	"github.com/jpfielding/dicomkit/pkg/dicom/transforms"
	"github.com/jpfielding/dicomkit/pkg/render"
	"github.com/spf13/cobra"
)

// NewRenderCmd writes one frame as an image file
func NewRenderCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "render a frame to png, jpeg, bmp or tiff",
		Long:  "render a frame through the modality and VOI transforms; the output format follows the --out extension",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, _ := cmd.Flags().GetUint32("frame")
			out, _ := cmd.Flags().GetString("out")
			voi, _ := cmd.Flags().GetString("voi")
			auto, _ := cmd.Flags().GetBool("auto")
			percentile, _ := cmd.Flags().GetFloat64Slice("percentile")
			function, _ := cmd.Flags().GetString("function")
			scale, _ := cmd.Flags().GetFloat64("scale")

			opts := render.Options{Frame: frame, Auto: auto, Function: function, Scale: scale}
			if voi != "" {
				d, err := parseVOI(voi)
				if err != nil {
					return err
				}
				opts.VOI = &d
			}
			if len(percentile) > 0 {
				if len(percentile) != 2 {
					return fmt.Errorf("--percentile needs lo,hi")
				}
				opts.Auto = true
				opts.Percentile = [2]float64{percentile[0], percentile[1]}
			}
			if out == "" {
				out = fmt.Sprintf("frame_%d.png", frame)
			}

			ds, closer, err := codec.Open(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()
			img, err := render.Frame(ds, opts)
			if err != nil {
				return err
			}
			if err := render.WriteFile(out, img); err != nil {
				return err
			}
			slog.InfoContext(ctx, "rendered", "file", args[0], "frame", frame, "out", out)
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.Uint32("frame", 0, "frame index")
	pf.StringP("out", "o", "", "output image path (.png, .jpg, .bmp, .tif)")
	pf.String("voi", "", "window as center,width")
	pf.Bool("auto", false, "window the full range of the frame")
	pf.Float64Slice("percentile", nil, "window between the lo,hi quantiles (0..1) of the frame")
	pf.String("function", "", "VOI function: linear, linear-exact or sigmoid")
	pf.Float64("scale", 1, "resize factor")
	return cmd
}

func parseVOI(s string) (transforms.VOIDescription, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return transforms.VOIDescription{}, fmt.Errorf("--voi %q: want center,width", s)
	}
	c, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return transforms.VOIDescription{}, fmt.Errorf("--voi center: %w", err)
	}
	w, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return transforms.VOIDescription{}, fmt.Errorf("--voi width: %w", err)
	}
	return transforms.VOIDescription{Center: c, Width: w}, nil
}
