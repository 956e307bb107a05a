package survey

import (
	"context"
	"fmt"

	"shipcerts/pkg/models"
)

// Portfolio is the read side of the persistence collaborator.
type Portfolio interface {
	FindCertificates(ctx context.Context, shipID string) ([]models.StoredCertificate, error)
	GetShip(ctx context.Context, shipID string) (models.Ship, error)
}

// Report is the survey evaluation of a whole ship.
type Report struct {
	Ship           models.Ship                  `json:"ship"`
	Analysis       models.SurveyAnalysis        `json:"analysis"`
	Determinations []models.SurveyDetermination `json:"determinations"`
}

// DetermineAll loads a ship's certificates and evaluates each of them against
// one portfolio analysis.
func (c *Calculator) DetermineAll(ctx context.Context, store Portfolio, shipID string) (*Report, error) {
	ship, err := store.GetShip(ctx, shipID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ship %s: %w", shipID, err)
	}

	certs, err := store.FindCertificates(ctx, shipID)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificates of ship %s: %w", shipID, err)
	}

	analysis := c.Analyze(certs)
	report := &Report{
		Ship:           ship,
		Analysis:       analysis,
		Determinations: make([]models.SurveyDetermination, 0, len(certs)),
	}
	for _, cert := range certs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		det := c.Evaluate(cert, analysis, ship)
		report.Determinations = append(report.Determinations, det)

		c.log.Info().
			Str("ship_id", shipID).
			Str("cert_id", cert.ID).
			Str("cert_name", cert.CertName).
			Str("survey_type", string(det.SurveyType)).
			Str("due_date", det.DueDate).
			Msg("Survey determined")
	}

	return report, nil
}
