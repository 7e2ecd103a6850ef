package projects

import (
	"context"
	"errors"

	"saas-backend/internal/analysis"
)

// AnalysisTarget exposes projects to the analysis service.
type AnalysisTarget struct {
	Repo Repo
}

func (t AnalysisTarget) AnalysisSubject(ctx context.Context, organizationID, id string) (analysis.Subject, error) {
	p, err := t.Repo.GetByID(ctx, organizationID, id)
	if err != nil {
		return analysis.Subject{}, mapNotFound(err)
	}
	return analysis.Subject{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Content:     p.Content,
		Status:      p.Status,
	}, nil
}

func (t AnalysisTarget) SetStatus(ctx context.Context, organizationID, id string, status analysis.Status) error {
	return mapNotFound(t.Repo.UpdateStatus(ctx, organizationID, id, status))
}

func (t AnalysisTarget) SaveAnalysis(ctx context.Context, organizationID, id string, out analysis.Output) error {
	return mapNotFound(t.Repo.SaveAnalysis(ctx, organizationID, id, out))
}

func mapNotFound(err error) error {
	if errors.Is(err, ErrNotFound) {
		return analysis.ErrNotFound
	}
	return err
}

var _ analysis.Target = AnalysisTarget{}
