package domain

import "vistora/pkg/types"

// View converts the job to its API payload.
func (j Job) View() types.Job {
	c := j.Clone()
	return types.Job{
		ID:                  c.ID,
		UserID:              c.UserID,
		InputPath:           c.InputPath,
		OutputPath:          c.OutputPath,
		ProfileName:         c.ProfileName,
		Runner:              c.Runner,
		QualityTier:         string(c.QualityTier),
		DetectorModel:       c.DetectorModel,
		RestorerModel:       c.RestorerModel,
		RefinerModel:        c.RefinerModel,
		DurationHintSeconds: c.DurationHintSeconds,
		Options:             c.Options,
		Status:              string(c.Status),
		Stage:               c.Stage,
		Progress:            c.Progress,
		CreditsReserved:     c.CreditsReserved,
		Error:               c.Error,
		CreatedAt:           c.CreatedAt,
		UpdatedAt:           c.UpdatedAt,
		StartedAt:           c.StartedAt,
		FinishedAt:          c.FinishedAt,
	}
}

func (e LedgerEntry) View() types.Transaction {
	return types.Transaction{
		ID:        e.ID,
		UserID:    e.UserID,
		Kind:      string(e.Kind),
		Amount:    e.Amount,
		Consumed:  e.Consumed,
		Reason:    e.Reason,
		RefID:     e.RefID,
		CreatedAt: e.CreatedAt,
	}
}

func (p Profile) View() types.Profile {
	settings := p.Settings
	if settings == nil {
		settings = map[string]any{}
	}
	return types.Profile{Name: p.Name, Settings: settings}
}
