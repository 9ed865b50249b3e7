package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/garagebook/internal/server/exports"
	"github.com/dmitrijs2005/garagebook/internal/server/models"
)

// Export describes an uploaded export.
type Export struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// exportDocument is the JSON written to the bucket.
type exportDocument struct {
	AccountID   int64                `json:"accountId"`
	GeneratedAt time.Time            `json:"generatedAt"`
	Summary     models.Summary       `json:"summary"`
	Vehicles    []models.VehicleView `json:"vehicles"`
}

// ExportService snapshots an account's records into object storage.
type ExportService struct {
	vehicles *VehicleService
	uploader exports.Uploader
}

func NewExportService(vehicles *VehicleService, uploader exports.Uploader) *ExportService {
	return &ExportService{vehicles: vehicles, uploader: uploader}
}

// Export uploads every record of accountID with status as of now and
// returns the object key with a presigned download link.
func (s *ExportService) Export(ctx context.Context, accountID int64, now time.Time) (*Export, error) {
	views, err := s.vehicles.List(ctx, accountID, now)
	if err != nil {
		return nil, err
	}

	doc := exportDocument{AccountID: accountID, GeneratedAt: now.UTC(), Vehicles: views}
	for _, v := range views {
		doc.Summary.Add(v.Status)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal export: %w", err)
	}

	key := exports.ObjectKey(accountID, now)
	if err := s.uploader.Upload(ctx, key, body, "application/json"); err != nil {
		return nil, fmt.Errorf("error uploading export: %w", err)
	}

	url, err := s.uploader.PresignGet(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error presigning export: %w", err)
	}
	return &Export{Key: key, URL: url}, nil
}
