package service

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/renobook/renobook/internal/domain/budget"
	"github.com/renobook/renobook/internal/domain/sheet"
	apperrors "github.com/renobook/renobook/internal/errors"
)

// ImportSummary reports what a spreadsheet import loaded.
type ImportSummary struct {
	Categories int      `json:"categories"`
	Items      int      `json:"items"`
	Legacy     bool     `json:"legacy_layout"`
	Skipped    int      `json:"skipped_rows"`
	Warnings   []string `json:"warnings,omitempty"`
}

// ImportWorkbook validates and parses a spreadsheet, then atomically
// replaces the whole store with its contents. A safety backup is taken
// first, so a structurally valid but wrong file can always be undone.
func (s *BudgetService) ImportWorkbook(ctx context.Context, r io.Reader) (*ImportSummary, error) {
	// The reader is consumed twice: once to validate, once to parse.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrBadUpload, err)
	}

	validation := sheet.ValidateReader(bytes.NewReader(data))
	if !validation.Valid {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidSheet,
			"文件格式验证失败："+strings.Join(validation.Errors, "；"))
	}

	result, err := sheet.ParseReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidSheet, err)
	}

	items := budget.FromSheet(result, budget.DefaultLegacyMerge)

	if s.backups != nil {
		if _, err := s.backups.Create(ctx, "before_import"); err != nil {
			s.logger.WarnContext(ctx, "pre-import backup failed", slog.Any("error", err))
		}
	}

	if err := s.repo.ImportReplace(ctx, result.Categories, items); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, err)
	}

	s.logger.InfoContext(ctx, "workbook imported",
		slog.Int("categories", len(result.Categories)),
		slog.Int("items", len(items)),
		slog.Bool("legacy", result.Layout == sheet.LayoutLegacy))

	return &ImportSummary{
		Categories: len(result.Categories),
		Items:      len(items),
		Legacy:     result.Layout == sheet.LayoutLegacy,
		Skipped:    result.SkippedRows,
		Warnings:   validation.Warnings,
	}, nil
}
