package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jpfielding/dicomkit/pkg/dicom/codec"
	"github.com/jpfielding/dicomkit/pkg/dicom/imagecodec"
	"github.com/jpfielding/dicomkit/pkg/dicom/transfer"
	"github.com/spf13/cobra"
)

var syntaxAliases = map[string]transfer.Syntax{
	"implicit":    transfer.ImplicitVRLittleEndian,
	"explicit":    transfer.ExplicitVRLittleEndian,
	"explicit-le": transfer.ExplicitVRLittleEndian,
	"explicit-be": transfer.ExplicitVRBigEndian,
	"deflate":     transfer.DeflatedExplicitVR,
	"rle":         transfer.RLELossless,
}

// NewConvertCmd transcodes a file into another transfer syntax
func NewConvertCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "transcode a DICOM file into another transfer syntax",
		Long:  "transcode a DICOM file; --syntax takes a transfer syntax UID or one of " + strings.Join(aliasNames(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("syntax")
			ts, err := parseSyntax(name)
			if err != nil {
				return err
			}
			ds, closer, err := codec.Open(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()
			out, err := codec.Transcode(ds, ts)
			if err != nil {
				return err
			}
			if err := codec.WriteFile(args[1], out); err != nil {
				return err
			}
			slog.InfoContext(ctx, "converted", "in", args[0], "from", ds.TransferSyntax().Name(), "out", args[1], "to", ts.Name())
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("syntax", "s", "explicit", "target transfer syntax")
	return cmd
}

func aliasNames() []string {
	names := make([]string, 0, len(syntaxAliases))
	for k := range syntaxAliases {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func parseSyntax(s string) (transfer.Syntax, error) {
	if ts, ok := syntaxAliases[strings.ToLower(s)]; ok {
		return ts, nil
	}
	ts := transfer.Syntax(strings.TrimSpace(s))
	if !ts.IsKnown() {
		return "", fmt.Errorf("unknown transfer syntax %q", s)
	}
	if ts.IsEncapsulated() {
		if _, err := imagecodec.Lookup(ts); err != nil {
			return "", err
		}
	}
	return ts, nil
}
