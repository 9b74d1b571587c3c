package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jpfielding/dicomkit/pkg/dicom/dicomdir"
	"github.com/jpfielding/dicomkit/pkg/dicom/tag"
	"github.com/spf13/cobra"
)

// NewDicomDirCmd prints the record tree of a DICOMDIR
func NewDicomDirCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dicomdir <DICOMDIR>",
		Short: "print the record tree of a DICOMDIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := dicomdir.Load(args[0])
			if err != nil {
				return err
			}
			if !dir.HasRoot() {
				fmt.Fprintln(cmd.OutOrStdout(), "empty DICOMDIR")
				return nil
			}
			root, err := dir.FirstRoot()
			if err != nil {
				return err
			}
			base := filepath.Dir(args[0])
			for e := root; e != nil; e = next(e) {
				if err := printEntry(cmd.OutOrStdout(), e, base, 0); err != nil {
					return err
				}
			}
			return nil
		},
	}
	return cmd
}

func next(e *dicomdir.Entry) *dicomdir.Entry {
	if !e.HasNext() {
		return nil
	}
	n, _ := e.Next()
	return n
}

var recordLabels = map[string]tag.Tag{
	dicomdir.Patient: tag.PatientID,
	dicomdir.Study:   tag.StudyInstanceUID,
	dicomdir.Series:  tag.SeriesInstanceUID,
}

func printEntry(w io.Writer, e *dicomdir.Entry, base string, depth int) error {
	kind, err := e.Type()
	if err != nil {
		return err
	}
	line := strings.Repeat("  ", depth) + kind
	if t, ok := recordLabels[kind]; ok {
		if v, _ := e.DataSet().GetStringDefault(t, 0, ""); v != "" {
			line += " " + v
		}
	}
	if parts, err := e.FileParts(); err == nil && len(parts) > 0 {
		line += " " + filepath.Join(append([]string{base}, parts...)...)
	}
	fmt.Fprintln(w, line)
	for _, child := range e.Children() {
		if err := printEntry(w, child, base, depth+1); err != nil {
			return err
		}
	}
	return nil
}
