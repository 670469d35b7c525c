package quickadd

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/renobook/renobook/internal/domain/budget"
	budgetservice "github.com/renobook/renobook/internal/domain/budget/service"
	apperrors "github.com/renobook/renobook/internal/errors"
)

// Service parses free text and turns it into stored budget items.
type Service struct {
	budgets *budgetservice.BudgetService
	logger  *slog.Logger
}

// NewService creates a quick-add service.
func NewService(budgets *budgetservice.BudgetService, logger *slog.Logger) *Service {
	return &Service{budgets: budgets, logger: logger}
}

// Preview is a parsed line plus its resolved category, returned for user
// confirmation before anything is stored.
type Preview struct {
	Parsed
	Category string `json:"category"`
}

// ParseText parses one line and resolves its category against the existing
// ones without storing anything.
func (s *Service) ParseText(ctx context.Context, text string) (*Preview, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ErrEmptyText
	}
	categories, err := s.budgets.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = c.Name
	}

	parsed := Parse(text)
	subject := parsed.CategoryHint
	if subject == "" {
		subject = parsed.ProjectName
	}
	return &Preview{
		Parsed:   parsed,
		Category: ResolveCategory(subject, names),
	}, nil
}

// ParseAndAdd parses one line and stores the resulting item.
func (s *Service) ParseAndAdd(ctx context.Context, text string) (*budget.Item, error) {
	preview, err := s.ParseText(ctx, text)
	if err != nil {
		return nil, err
	}
	if preview.ProjectName == "" {
		return nil, apperrors.ErrEmptyProjectName
	}
	item, err := s.budgets.AddItem(ctx, budgetservice.ItemInput{
		Category:          preview.Category,
		ProjectName:       preview.ProjectName,
		Unit:              preview.Unit,
		BudgetQuantity:    preview.Quantity,
		BudgetCost:        parseAmount(preview.Budget),
		CurrentInvestment: parseAmount(preview.Invested),
		FinalCost:         parseAmount(preview.Final),
		Remark:            preview.Remark,
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "quick-add stored",
		slog.String("project", item.ProjectName),
		slog.String("category", preview.Category))
	return item, nil
}

// LineFailure reports why one line of a batch could not be stored.
type LineFailure struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// BatchResult summarizes a multi-line quick-add. Lines succeed or fail
// independently; one bad line never blocks the rest.
type BatchResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Items     []budget.Item `json:"items"`
	Failures  []LineFailure `json:"failures,omitempty"`
}

// ParseAndAddBatch applies the single-line pipeline to every non-blank
// line of the input.
func (s *Service) ParseAndAddBatch(ctx context.Context, text string) (*BatchResult, error) {
	lines := strings.Split(text, "\n")
	result := &BatchResult{}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		item, err := s.ParseAndAdd(ctx, line)
		if err != nil {
			result.Failed++
			result.Failures = append(result.Failures, LineFailure{
				Line:   i + 1,
				Text:   strings.TrimSpace(line),
				Reason: err.Error(),
			})
			continue
		}
		result.Succeeded++
		result.Items = append(result.Items, *item)
	}
	if result.Succeeded == 0 && result.Failed == 0 {
		return nil, apperrors.ErrEmptyText
	}
	return result, nil
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
