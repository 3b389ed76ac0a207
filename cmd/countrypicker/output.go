package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/mattsblocklist/countrypicker/internal/countries"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	return table
}

func writeCountries(w io.Writer, list []countries.Country) {
	var data [][]string
	for _, c := range list {
		data = append(data, []string{
			c.Code,
			c.Name.Common(),
			strings.Join(c.CallingCode, ","),
			strings.Join(c.Currency, ","),
			string(c.Region),
			c.Subregion,
		})
	}

	table := newTable(w, "CODE", "NAME", "CALLING CODE", "CURRENCY", "REGION", "SUBREGION")
	table.AppendBulk(data)
	table.Render()
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
