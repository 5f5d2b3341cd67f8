package view

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"podvision/internal/avatar"
)

func renderTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

// MappingTable renders speaker assignments sorted by label.
func MappingTable(mapping avatar.Mapping) string {
	rows := make([][]string, 0, len(mapping))
	for _, label := range mapping.Labels() {
		model := mapping[label]
		rows = append(rows, []string{label, avatar.DisplayName(model), model})
	}
	return renderTable([]string{"Speaker", "Avatar", "Model"}, rows)
}

// CatalogTable renders the selectable avatars, marking those used by defaults.
func CatalogTable(catalog avatar.Catalog, defaults avatar.Mapping) string {
	used := make(map[string][]string)
	for _, label := range defaults.Labels() {
		used[defaults[label]] = append(used[defaults[label]], label)
	}
	rows := make([][]string, 0, catalog.Len())
	for _, model := range catalog.Models() {
		speakers := "-"
		if labels := used[model]; len(labels) > 0 {
			speakers = strings.Join(labels, ", ")
		}
		rows = append(rows, []string{model, avatar.DisplayName(model), speakers})
	}
	return renderTable([]string{"Model", "Name", "Default for"}, rows)
}
