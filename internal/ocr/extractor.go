package ocr

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/sacredheart/pharmacy_shop/internal/models"
)

type ExtractedMedicine struct {
	Name    string           `json:"name"`
	Dosage  string           `json:"dosage,omitempty"`
	Matched *models.Medicine `json:"matched,omitempty"`
}

// Extractor is the prescription intake collaborator: given an uploaded image
// it returns a best-effort list of medicine names, each optionally matched
// against the catalog. Implementations wrap an external OCR service.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) ([]ExtractedMedicine, error)
}

// DemoExtractor stands in for a real OCR backend. It returns a fixed
// candidate list and resolves each name against the catalog by exact
// case-insensitive match, the same way a real extraction result would be
// reconciled.
type DemoExtractor struct {
	DB *gorm.DB
}

var demoCandidates = []ExtractedMedicine{
	{Name: "Paracetamol 500mg", Dosage: "500mg"},
	{Name: "Azithromycin 500", Dosage: "500mg"},
	{Name: "Crocin Advance", Dosage: "500mg"},
}

func (e *DemoExtractor) Extract(ctx context.Context, image []byte, mimeType string) ([]ExtractedMedicine, error) {
	result := make([]ExtractedMedicine, 0, len(demoCandidates))
	for _, candidate := range demoCandidates {
		entry := ExtractedMedicine{Name: candidate.Name, Dosage: candidate.Dosage}

		var med models.Medicine
		err := e.DB.WithContext(ctx).
			Where("LOWER(name) = LOWER(?)", candidate.Name).
			First(&med).Error
		if err == nil {
			entry.Matched = &med
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		result = append(result, entry)
	}
	return result, nil
}
