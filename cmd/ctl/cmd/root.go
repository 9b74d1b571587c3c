package cmd

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"

	"github.com/jpfielding/dicomkit/pkg/dicom/codec"
	"github.com/jpfielding/dicomkit/pkg/dicom/dataset"
	"github.com/jpfielding/dicomkit/pkg/logging"
	"github.com/spf13/cobra"
)

func NewRoot(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "dicomctl",
		Short:         "a CLI to inspect, render and convert DICOM files",
		Long:          "dicomctl reads DICOM files and DICOMDIRs, renders frames to images and transcodes between transfer syntaxes",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFile, _ := cmd.Flags().GetString("log-file")
			logJSON, _ := cmd.Flags().GetBool("log-json")

			// Parse log level
			var level slog.Level
			levelErr := level.UnmarshalText([]byte(strings.ToUpper(logLevel)))
			if levelErr != nil {
				level = slog.LevelInfo
			}
			var w io.Writer = os.Stderr
			if logFile != "" {
				w = logging.RotatingWriter(logFile, 50, 3)
			}
			slog.SetDefault(logging.Logger(w, logJSON, level))

			if levelErr != nil {
				slog.WarnContext(ctx, "Invalid log level, defaulting to INFO", "level", logLevel, "error", levelErr)
			}
		},
		Run: func(cmd *cobra.Command, args []string) {
			printCommandTree(cmd, 0)
		},
	}
	cmd.AddCommand(
		NewVersionCmd(ctx, gitsha),
		NewDumpCmd(ctx),
		NewAnalyzeCmd(ctx),
		NewRenderCmd(ctx),
		NewConvertCmd(ctx),
		NewDicomDirCmd(ctx),
	)
	pf := cmd.PersistentFlags()
	pf.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
	pf.String("log-file", "", "write logs to this rotating file instead of stderr")
	pf.Bool("log-json", false, "log as json")
	return cmd
}

func printCommandTree(cmd *cobra.Command, indent int) {
	fmt.Println(strings.Repeat("\t", indent), cmd.Use+":", cmd.Short)
	for _, subCmd := range cmd.Commands() {
		printCommandTree(subCmd, indent+1)
	}
}

func NewVersionCmd(ctx context.Context, gitsha string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "git sha for this build",
		Long:  "git sha for this build",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), gitsha)
		},
	}
	return cmd
}

// NewDumpCmd prints a data set as text or json
func NewDumpCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump [uri]",
		Short: "print the elements of a DICOM file",
		Long:  "print the elements of a DICOM file read from a path, stdin (-) or an http(s) URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, _ := cmd.Flags().GetString("uri")
			if uri == "" && len(args) > 0 {
				uri = args[0]
			}
			verbose, _ := cmd.Flags().GetBool("verbose")
			insecure, _ := cmd.Flags().GetBool("insecure")
			ds, err := fetch(cmd.Context(), uri, verbose, insecure)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text": // Dataset will nicely print the DICOM dataset data out of the box.
				fmt.Fprintln(out, ds)
			default: // Dataset is also JSON serializable out of the box.
				j, err := json.Marshal(ds)
				if err != nil {
					return err
				}
				out.Write(j)
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "DICOM URI: a path, - for stdin or an http(s) URL")
	pf.StringP("format", "f", "json", "output format (text|json)")
	pf.BoolP("verbose", "v", false, "dump http request and response headers")
	pf.Bool("insecure", false, "skip TLS verification for https URLs")
	return cmd
}

// fetch parses a data set from a file path, stdin or an http(s) URL
func fetch(ctx context.Context, uri string, verbose, insecure bool) (*dataset.DataSet, error) {
	uri = strings.TrimPrefix(uri, "file://")
	switch {
	case uri == "":
		return nil, fmt.Errorf("a DICOM uri is required")
	case uri == "-":
		return codec.Parse(os.Stdin)
	case strings.HasPrefix(uri, "http"):
		cl := &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		resp, err := cl.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to download: %w", err)
		}
		defer resp.Body.Close()
		if verbose {
			reqDump, _ := httputil.DumpRequest(req, true)
			os.Stderr.Write(reqDump)
			resDump, _ := httputil.DumpResponse(resp, false)
			os.Stderr.Write(resDump)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("failed to download: %s", resp.Status)
		}
		return codec.Parse(resp.Body)
	default:
		return codec.ReadFile(uri)
	}
}
