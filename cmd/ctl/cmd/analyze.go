package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/jpfielding/dicomkit/pkg/dicom/codec"
	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/dicom/pixel"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/spf13/cobra"
)

// NewAnalyzeCmd creates the analyze cobra command
func NewAnalyzeCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [file]",
		Short: "Analyze DICOM file structure",
		Long:  "Parses and displays key metadata of a DICOM file and the value range of its frames. Large values are loaded lazily.",
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath, _ := cmd.Flags().GetString("file")
			dumpFrame, _ := cmd.Flags().GetInt("dump-frame")
			out, _ := cmd.Flags().GetString("out")

			if filePath == "" && len(args) > 0 {
				filePath = args[0]
			}

			if filePath == "" {
				return fmt.Errorf("file path is required. Use --file flag or provide as argument")
			}

			return runAnalyze(cmd.OutOrStdout(), filePath, dumpFrame, out)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "DICOM file path to analyze")
	pf.Int("dump-frame", -1, "Index of frame to dump to disk as raw samples")
	pf.String("out", "", "Output path for dumped frame")

	return cmd
}

func runAnalyze(w io.Writer, filePath string, dumpFrame int, outPath string) error {
	ds, closer, err := codec.Open(filePath)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	defer closer.Close()

	fmt.Fprintf(w, "Total tags: %d\n\n", len(ds.GetTags()))
	fmt.Fprintln(w, "=== Key Metadata ===")
	for _, kv := range []struct {
		name string
		t    tag.Tag
	}{
		{"Modality", tag.Modality},
		{"SOPClassUID", tag.SOPClassUID},
		{"PhotometricInterpretation", tag.PhotometricInterpretation},
	} {
		v, _ := ds.GetStringDefault(kv.t, 0, "")
		fmt.Fprintf(w, "%s: %s\n", kv.name, v)
	}
	for _, kv := range []struct {
		name string
		t    tag.Tag
	}{
		{"Rows", tag.Rows},
		{"Columns", tag.Columns},
		{"BitsAllocated", tag.BitsAllocated},
		{"BitsStored", tag.BitsStored},
		{"PixelRepresentation", tag.PixelRepresentation},
	} {
		v, _ := ds.GetUint32Default(kv.t, 0, 0)
		fmt.Fprintf(w, "%s: %d\n", kv.name, v)
	}
	syntax := ds.TransferSyntax()
	fmt.Fprintf(w, "TransferSyntax: %s (%s)\n", syntax, syntax.Name())
	fmt.Fprintf(w, "Encapsulated: %v\n", syntax.IsEncapsulated())

	frames, err := ds.FrameCount()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "NumberOfFrames: %d\n\n", frames)
	if frames == 0 {
		fmt.Fprintln(w, "No pixel data")
		return nil
	}

	if dumpFrame >= 0 {
		return dump(w, ds, dumpFrame, frames, outPath)
	}

	fmt.Fprintln(w, "=== Pixel Data ===")
	maxFramesToShow := min(frames, 3)
	for i := uint32(0); i < maxFramesToShow; i++ {
		fmt.Fprintf(w, "\n--- Frame %d ---\n", i)
		img, err := ds.GetModalityImage(i)
		if err != nil {
			fmt.Fprintf(w, "Decode error: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "Size: %dx%d %s %s\n", img.Width(), img.Height(), img.Depth(), img.ColorSpace())
		s, err := pixel.Statistics(img, 0, 0, img.Width(), img.Height())
		if err != nil {
			fmt.Fprintf(w, "Statistics error: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "Pixel range: min=%g, max=%g, mean=%.2f, stddev=%.2f\n", s.Min, s.Max, s.Mean, s.StdDev)
	}
	return nil
}

// dump writes the stored samples of one frame in the data set byte order
func dump(w io.Writer, ds *dataset.DataSet, frame int, frames uint32, outPath string) error {
	if uint32(frame) >= frames {
		return fmt.Errorf("frame index %d out of bounds (0-%d)", frame, frames-1)
	}
	img, err := ds.GetImage(uint32(frame))
	if err != nil {
		return err
	}
	if outPath == "" {
		outPath = fmt.Sprintf("frame_%d.bin", frame)
	}
	fmt.Fprintf(w, "Dumping frame %d (%d bytes) to %s\n", frame, len(img.Data()), outPath)
	return os.WriteFile(outPath, img.Data(), 0644)
}
