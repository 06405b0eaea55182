package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/outreach-cli/internal/generate"
	"github.com/sells-group/outreach-cli/internal/llm"
)

var (
	generateAPIKey       string
	generateTemplateID   string
	generateTemplateText string
	generateTemplateFile string
	generateCustom       bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write messages and WhatsApp links for pending leads",
	Long:  "Renders a template for every unsent lead without a message, asks the text model for a variation, and stores the message with its wa.me deep link.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		key, err := resolveAPIKey(generateAPIKey)
		if err != nil {
			return err
		}
		req, err := generateRequest(key)
		if err != nil {
			return err
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

		res, err := generate.New(st, factory, generationOptions()).Run(ctx, req)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), res.Message())
		if res.Skipped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%d lead(s) skipped; rerun to retry them.\n", res.Skipped)
		}
		return nil
	},
}

// generateRequest builds the request from flags. A template file implies a
// custom template.
func generateRequest(key string) (generate.Request, error) {
	req := generate.Request{
		APIKey:       key,
		TemplateID:   generateTemplateID,
		TemplateText: generateTemplateText,
		IsCustom:     generateCustom,
	}
	if generateTemplateFile != "" {
		if generateTemplateText != "" {
			return req, eris.New("use either --template or --template-file, not both")
		}
		data, err := os.ReadFile(generateTemplateFile)
		if err != nil {
			return req, eris.Wrap(err, "read template file")
		}
		req.TemplateText = string(data)
		req.IsCustom = true
	}
	return req, nil
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateAPIKey, "api-key", "", "text service API key (default from config)")
	f.StringVar(&generateTemplateID, "template-id", "", "built-in template id (see 'outreach templates')")
	f.StringVar(&generateTemplateText, "template", "", "template text; {name} is replaced by the lead's name")
	f.StringVar(&generateTemplateFile, "template-file", "", "read template text from a file")
	f.BoolVar(&generateCustom, "custom", false, "treat the template as user-authored (stronger model, stricter prompt)")
	rootCmd.AddCommand(generateCmd)
}
