package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"resumeRender/internal/config"
	"resumeRender/internal/docgen"
	"resumeRender/internal/resume"
)

func newGenerateCmd(logger func(*cobra.Command) *slog.Logger) *cobra.Command {
	var (
		input    string
		output   string
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a résumé JSON file to PDF",
		Long: `Sends the résumé to the rendering service and writes the returned document.
The endpoint defaults to DOCGEN_BASE_URL + DOCGEN_PATH.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			var req resume.Request
			if err := json.Unmarshal(raw, &req); err != nil {
				return fmt.Errorf("parse %s: %w", input, err)
			}

			if endpoint == "" {
				cfg, err := config.LoadClient()
				if err != nil {
					return fmt.Errorf("load client config: %w", err)
				}
				endpoint = docgen.EndpointURL(cfg.BaseURL, cfg.Path)
			}

			client, err := docgen.NewClient(endpoint, docgen.WithLogger(logger(cmd)))
			if err != nil {
				return err
			}

			doc, err := client.GenerateDocument(cmd.Context(), req)
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, doc, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			cmd.Printf("wrote %d bytes to %s\n", len(doc), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "file", "f", "", "Résumé JSON file")
	cmd.Flags().StringVarP(&output, "output", "o", "resume.pdf", "Output PDF file")
	cmd.Flags().StringVar(&endpoint, "endpoint", "", "Full URL of the document endpoint")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
