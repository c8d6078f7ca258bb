package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ersonp/casegraph/internal/domain/services"
	"github.com/ersonp/casegraph/internal/infrastructure/parsers"
	"github.com/ersonp/casegraph/internal/infrastructure/projectfile"
)

// FormatDump names the whole-graph dump format accepted by import and export.
const FormatDump = "lsdb"

// ImportHandler handles importing records from files.
type ImportHandler struct {
	service *services.ImportService
}

// NewImportHandler creates a new import handler.
func NewImportHandler(service *services.ImportService) *ImportHandler {
	return &ImportHandler{
		service: service,
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format     string                    // "json", "csv", "lsdb", or "auto"
	DryRun     bool                      // Validate without saving
	OnConflict services.ConflictStrategy // How to handle existing records
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	Imported int
	Skipped  int
	Errors   []services.ImportError
}

// Handle imports records from a file. Graph dumps are always merged by
// last-write-wins.
func (h *ImportHandler) Handle(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	if isDump(filePath, opts.Format) {
		return h.handleDump(ctx, filePath, opts)
	}

	var parser parsers.Parser
	if opts.Format == "" || opts.Format == "auto" {
		parser = parsers.ForFile(filePath)
	} else {
		parser = parsers.ForFormat(opts.Format)
	}

	if parser == nil {
		return nil, fmt.Errorf("unsupported format for file: %s", filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer file.Close()

	records, err := parser.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parsing file: %w", err)
	}

	if len(records) == 0 {
		return &ImportResult{}, nil
	}

	serviceResult, err := h.service.Import(ctx, filepath.Base(filePath), records, services.ImportOptions{
		DryRun:     opts.DryRun,
		OnConflict: opts.OnConflict,
	})
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		Imported: serviceResult.Imported,
		Skipped:  serviceResult.Skipped,
		Errors:   serviceResult.Errors,
	}, nil
}

func (h *ImportHandler) handleDump(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	dump, err := projectfile.New(filePath).Read(ctx)
	if err != nil {
		return nil, err
	}

	total := len(dump.Entities) + len(dump.Links)
	if opts.DryRun {
		return &ImportResult{Imported: total}, nil
	}

	diff, err := h.service.MergeDump(ctx, filepath.Base(filePath), dump)
	if err != nil {
		return nil, err
	}

	imported := len(diff.Entities) + len(diff.Links)
	return &ImportResult{
		Imported: imported,
		Skipped:  total - imported,
	}, nil
}

func isDump(filePath, format string) bool {
	if strings.EqualFold(format, FormatDump) {
		return true
	}
	return (format == "" || format == "auto") && strings.EqualFold(filepath.Ext(filePath), "."+FormatDump)
}
