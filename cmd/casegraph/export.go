package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/casegraph/internal/domain/entities"
	"github.com/ersonp/casegraph/internal/infrastructure/parsers"
	"github.com/ersonp/casegraph/internal/infrastructure/projectfile"
)

type exportFlags struct {
	format     string
	output     string
	entityType string
}

type exporter struct {
	format  string
	output  string
	primary primaryFunc
}

func newExportCmd() *cobra.Command {
	var flags exportFlags

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the project graph to file",
		Long: `Exports entities and links to JSON, CSV, markdown or a graph dump (lsdb).
JSON, CSV and lsdb output can be imported again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "json", "Output format (json, csv, markdown, lsdb)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVarP(&flags.entityType, "type", "t", "", "Only export entities of this type and the links between them")

	return cmd
}

func runExport(cmd *cobra.Command, flags exportFlags) error {
	if !slices.Contains(validFormats, flags.format) {
		return fmt.Errorf("invalid format %q, valid formats: %v", flags.format, validFormats)
	}

	return withInternalDeps(cmd.Context(), func(d *internalDeps) error {
		dump := filterDump(d.store.Dump(), flags.entityType)
		if len(dump.Entities) == 0 {
			return fmt.Errorf("no entities found to export")
		}

		e := &exporter{
			format:  flags.format,
			output:  flags.output,
			primary: d.store.PrimaryValue,
		}
		return e.export(dump)
	})
}

// filterDump keeps the entities of entityType and the links whose endpoints
// both survive. An empty type keeps everything.
func filterDump(dump *entities.GraphDump, entityType string) *entities.GraphDump {
	if entityType == "" {
		return dump
	}

	out := &entities.GraphDump{}
	kept := make(map[string]bool)
	for _, e := range dump.Entities {
		if e.Type == entityType {
			out.Entities = append(out.Entities, e)
			kept[e.UID] = true
		}
	}
	for _, l := range dump.Links {
		if kept[l.Key.Source] && kept[l.Key.Target] {
			out.Links = append(out.Links, l)
		}
	}
	return out
}

func (e *exporter) export(dump *entities.GraphDump) (err error) {
	var w io.Writer

	if e.output != "" {
		f, err := os.OpenFile(e.output, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return fmt.Errorf("creating file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing file: %w", cerr)
			}
		}()
		w = f
	} else {
		w = os.Stdout
	}

	if err := e.formatDump(w, dump); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if e.output != "" {
		fmt.Printf("Exported %d entities and %d links to %s\n", len(dump.Entities), len(dump.Links), e.output)
	}

	return nil
}

func (e *exporter) formatDump(w io.Writer, dump *entities.GraphDump) error {
	switch e.format {
	case "json":
		return formatJSON(w, dump)
	case "csv":
		return formatCSV(w, dump)
	case "markdown":
		return formatMarkdown(w, dump, e.primary)
	case "lsdb":
		return projectfile.Encode(w, dump)
	default:
		return fmt.Errorf("unknown format: %s", e.format)
	}
}

// formatJSON writes the object form read back by the JSON import parser.
func formatJSON(w io.Writer, dump *entities.GraphDump) error {
	doc := struct {
		Entities []*entities.Entity `json:"entities"`
		Links    []*entities.Link   `json:"links"`
	}{
		Entities: dump.Entities,
		Links:    dump.Links,
	}
	if doc.Entities == nil {
		doc.Entities = []*entities.Entity{}
	}
	if doc.Links == nil {
		doc.Links = []*entities.Link{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// formatCSV writes entities then links in one table with a kind column, the
// layout read back by the CSV import parser. Icons and group members are not
// exported.
func formatCSV(w io.Writer, dump *entities.GraphDump) error {
	header := csvHeader(dump)
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, e := range dump.Entities {
		row := make([]string, len(header))
		row[index[parsers.ColumnKind]] = string(parsers.KindEntity)
		row[index[entities.FieldUID]] = e.UID
		row[index[entities.FieldEntityType]] = e.Type
		for _, attr := range e.Attributes {
			row[index[attr.Key]] = attr.Value
		}
		row[index[entities.FieldNotes]] = e.Notes
		row[index[entities.FieldDateCreated]] = entities.FormatTime(e.DateCreated)
		row[index[entities.FieldDateLastEdited]] = entities.FormatTime(e.DateLastEdited)
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	for _, l := range dump.Links {
		row := make([]string, len(header))
		row[index[parsers.ColumnKind]] = string(parsers.KindLink)
		row[index[parsers.ColumnSource]] = l.Key.Source
		row[index[parsers.ColumnTarget]] = l.Key.Target
		row[index[entities.FieldResolution]] = l.Resolution
		row[index[entities.FieldNotes]] = l.Notes
		row[index[entities.FieldDateCreated]] = entities.FormatTime(l.DateCreated)
		row[index[entities.FieldDateLastEdited]] = entities.FormatTime(l.DateLastEdited)
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// csvHeader lists the fixed columns around every attribute key in the order
// first seen.
func csvHeader(dump *entities.GraphDump) []string {
	header := []string{parsers.ColumnKind, entities.FieldUID, entities.FieldEntityType}
	seen := map[string]bool{
		parsers.ColumnKind:           true,
		entities.FieldUID:            true,
		entities.FieldEntityType:     true,
		entities.FieldNotes:          true,
		entities.FieldDateCreated:    true,
		entities.FieldDateLastEdited: true,
		parsers.ColumnSource:         true,
		parsers.ColumnTarget:         true,
		entities.FieldResolution:     true,
	}
	for _, e := range dump.Entities {
		for _, attr := range e.Attributes {
			if !seen[attr.Key] {
				seen[attr.Key] = true
				header = append(header, attr.Key)
			}
		}
	}
	return append(header,
		entities.FieldNotes, entities.FieldDateCreated, entities.FieldDateLastEdited,
		parsers.ColumnSource, parsers.ColumnTarget, entities.FieldResolution,
	)
}

func formatMarkdown(w io.Writer, dump *entities.GraphDump, primary primaryFunc) error {
	if _, err := fmt.Fprintf(w, "# Exported Graph\n\nTotal: %d entities, %d links\n\n",
		len(dump.Entities), len(dump.Links)); err != nil {
		return err
	}

	if _, err := fmt.Fprint(w, "## Entities\n\n| UID | Type | Primary | Notes |\n|-----|------|---------|-------|\n"); err != nil {
		return err
	}

	names := make(map[string]string, len(dump.Entities))
	for _, e := range dump.Entities {
		name := primary(e)
		names[e.UID] = name
		if _, err := fmt.Fprintf(w, "| %s | %s | %s | %s |\n",
			e.UID,
			escapeMarkdown(e.Type),
			escapeMarkdown(name),
			escapeMarkdown(truncate(e.Notes, 80)),
		); err != nil {
			return err
		}
	}

	if len(dump.Links) == 0 {
		return nil
	}

	if _, err := fmt.Fprint(w, "\n## Links\n\n| Source | Resolution | Target |\n|--------|------------|--------|\n"); err != nil {
		return err
	}

	display := func(uid string) string {
		if name := names[uid]; name != "" {
			return name
		}
		return uid
	}
	for _, l := range dump.Links {
		if _, err := fmt.Fprintf(w, "| %s | %s | %s |\n",
			escapeMarkdown(display(l.Key.Source)),
			escapeMarkdown(l.Resolution),
			escapeMarkdown(display(l.Key.Target)),
		); err != nil {
			return err
		}
	}

	return nil
}

func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
