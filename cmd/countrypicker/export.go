package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mattsblocklist/countrypicker/internal/countries"
	"github.com/mattsblocklist/countrypicker/internal/picker"
)

// ExportResult is the JSON document written by export.
type ExportResult struct {
	Name        string                `json:"name"`
	Translation countries.Translation `json:"translation"`
	Filters     picker.Options        `json:"filters"`
	Timestamp   time.Time             `json:"timestamp"`
	TotalCodes  int                   `json:"total_codes"`
	Fallback    bool                  `json:"fallback,omitempty"`
	Countries   []ExportedCountry     `json:"countries"`
}

// ExportedCountry is one row of an export.
type ExportedCountry struct {
	Alpha2      string   `json:"alpha2"`
	Name        string   `json:"name"`
	CallingCode []string `json:"calling_code"`
	Currency    []string `json:"currency"`
	Region      string   `json:"region"`
	Subregion   string   `json:"subregion,omitempty"`
}

func newExportCmd(a *app) *cobra.Command {
	var (
		f          listFlags
		outputTxt  string
		outputJSON string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a filtered list as a code list and a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			opts, err := f.options(ctx, cmd, a)
			if err != nil {
				return err
			}

			state, err := a.engine.Apply(ctx, opts)
			if err != nil {
				return err
			}

			result := &ExportResult{
				Name:        "Country list",
				Translation: opts.Translation,
				Filters:     opts,
				Timestamp:   time.Now(),
				TotalCodes:  len(state.VisibleList),
				Fallback:    state.Fallback,
			}
			for _, c := range state.VisibleList {
				result.Countries = append(result.Countries, ExportedCountry{
					Alpha2:      c.Code,
					Name:        c.Name.Common(),
					CallingCode: c.CallingCode,
					Currency:    c.Currency,
					Region:      string(c.Region),
					Subregion:   c.Subregion,
				})
			}

			if err := writeOutputs(result, outputTxt, outputJSON); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Exported %d countries\n", result.TotalCodes)
			fmt.Fprintf(out, "  - %s\n", outputTxt)
			fmt.Fprintf(out, "  - %s\n", outputJSON)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&outputTxt, "output-txt", "data/countries.txt", "Output text file (one code per line)")
	cmd.Flags().StringVar(&outputJSON, "output-json", "data/countries.json", "Output JSON file")
	return cmd
}

func writeOutputs(result *ExportResult, txtPath, jsonPath string) error {
	for _, path := range []string{txtPath, jsonPath} {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Write text file with header
	var txtBuilder strings.Builder
	txtBuilder.WriteString("# " + result.Name + "\n")
	txtBuilder.WriteString("# Generated: " + result.Timestamp.Format("2006-01-02 15:04:05 MST") + "\n")
	txtBuilder.WriteString("# Translation: " + string(result.Translation) + "\n")
	txtBuilder.WriteString("#\n")
	txtBuilder.WriteString("# Country codes (ISO 3166-1 alpha-2)\n")
	txtBuilder.WriteString("#\n")
	for _, c := range result.Countries {
		txtBuilder.WriteString(c.Alpha2 + "\n")
	}

	if err := os.WriteFile(txtPath, []byte(txtBuilder.String()), 0644); err != nil {
		return fmt.Errorf("failed to write txt file: %w", err)
	}

	f, err := os.Create(jsonPath)
	if err != nil {
		return fmt.Errorf("failed to write JSON file: %w", err)
	}
	defer f.Close()
	return writeJSON(f, result)
}
