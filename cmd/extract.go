package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/extract"
	"github.com/sells-group/outreach-cli/internal/llm"
)

var extractAPIKey string

var extractCmd = &cobra.Command{
	Use:   "extract <image>...",
	Short: "Extract phone numbers from screenshots into leads",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		key, err := resolveAPIKey(extractAPIKey)
		if err != nil {
			return err
		}

		images := make([]string, 0, len(args))
		for _, path := range args {
			uri, err := imageDataURI(path)
			if err != nil {
				return err
			}
			images = append(images, uri)
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		factory, err := llm.NewFactory(cfg)
		if err != nil {
			return err
		}

		res, err := extract.New(st, factory).Run(ctx, extract.Request{Images: images, APIKey: key})
		if err != nil {
			return err
		}

		formatExtractResult(cmd.OutOrStdout(), args, res)
		return nil
	},
}

// imageDataURI reads an image file and encodes it as a base64 data URI.
func imageDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrapf(err, "read image %s", path)
	}
	if len(data) == 0 {
		return "", eris.Errorf("image %s is empty", path)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func formatExtractResult(w io.Writer, paths []string, res *extract.Result) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMAGE\tCONTACTS\tINSERTED\tNOTE")
	for _, ir := range res.Images {
		name := fmt.Sprintf("#%d", ir.Index+1)
		if ir.Index < len(paths) {
			name = filepath.Base(paths[ir.Index])
		}
		note := ""
		switch {
		case ir.Err != "":
			note = "skipped: " + ir.Err
		case ir.Fallback:
			note = "regex fallback"
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", name, ir.Contacts, ir.Inserted, note)
	}
	tw.Flush() //nolint:errcheck
	fmt.Fprintln(w, res.Message())
}

func init() {
	extractCmd.Flags().StringVar(&extractAPIKey, "api-key", "", "vision service API key (default from config)")
	rootCmd.AddCommand(extractCmd)
}
