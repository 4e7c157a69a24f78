package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teachhub/teachhub-api/pkg/config"
	appErrors "github.com/teachhub/teachhub-api/pkg/errors"
	"github.com/teachhub/teachhub-api/pkg/export"
	"github.com/teachhub/teachhub-api/pkg/storage"

	"github.com/teachhub/teachhub-api/internal/models"
)

// ExportFormat selects the roster output encoding.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportResult describes a generated roster file and its download token.
type ExportResult struct {
	ExportID  string    `json:"export_id"`
	BatchID   string    `json:"batch_id"`
	Format    string    `json:"format"`
	FileName  string    `json:"file_name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	RowCount  int       `json:"row_count"`
}

type rosterLister interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
}

// ExportService generates batch roster files and serves them through
// signed, expiring download tokens.
type ExportService struct {
	enrollments rosterLister
	batches     batchResolver
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	cfg         config.ExportsConfig
	logger      *zap.Logger
}

func NewExportService(
	enrollments rosterLister,
	batches batchResolver,
	store *storage.LocalStorage,
	signer *storage.SignedURLSigner,
	cfg config.ExportsConfig,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		enrollments: enrollments,
		batches:     batches,
		store:       store,
		signer:      signer,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		cfg:         cfg,
		logger:      logger,
	}
}

// GenerateRoster renders the batch's enrollment roster in the requested
// format, stores the file and returns a signed download token.
func (s *ExportService) GenerateRoster(ctx context.Context, batchID string, format ExportFormat) (*ExportResult, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	batch, err := s.batches.FindByID(ctx, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		s.logger.Error("export: resolve batch failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve batch")
	}

	enrollments, _, err := s.enrollments.List(ctx, models.EnrollmentFilter{
		BatchID:  batchID,
		Page:     1,
		PageSize: 10000,
	})
	if err != nil {
		s.logger.Error("export: list enrollments failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Email", "Status", "Requested At"},
		Rows:    make([]map[string]string, 0, len(enrollments)),
	}
	for _, enrollment := range enrollments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":      enrollment.StudentName,
			"Email":        enrollment.StudentEmail,
			"Status":       string(enrollment.Status),
			"Requested At": enrollment.CreatedAt.Format("2006-01-02 15:04"),
		})
	}

	var content []byte
	switch format {
	case ExportFormatCSV:
		content, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		content, err = s.pdf.Render(dataset, fmt.Sprintf("Roster - %s", batch.Title))
	}
	if err != nil {
		s.logger.Error("export: render failed", zap.String("batch_id", batchID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster export")
	}

	exportID := uuid.NewString()
	fileName := fmt.Sprintf("roster_%s_%s.%s", batchID, time.Now().UTC().Format("20060102T150405"), format)
	if _, err := s.store.Save(fileName, content); err != nil {
		s.logger.Error("export: store file failed", zap.String("file", fileName), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	token, expiresAt, err := s.signer.Generate(exportID, fileName)
	if err != nil {
		s.logger.Error("export: sign token failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	s.logger.Info("roster exported",
		zap.String("batch_id", batchID),
		zap.String("export_id", exportID),
		zap.String("format", string(format)),
		zap.Int("rows", len(dataset.Rows)))

	return &ExportResult{
		ExportID:  exportID,
		BatchID:   batchID,
		Format:    string(format),
		FileName:  fileName,
		Token:     token,
		ExpiresAt: expiresAt,
		RowCount:  len(dataset.Rows),
	}, nil
}

// OpenDownload validates a signed token and opens the referenced file.
func (s *ExportService) OpenDownload(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "download link is invalid or expired")
	}

	file, err := s.store.Open(relPath)
	if err != nil {
		if os.IsNotExist(errors.Unwrap(err)) || os.IsNotExist(err) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer exists")
		}
		s.logger.Error("export: open file failed", zap.String("file", relPath), zap.Error(err))
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file")
	}
	return file, relPath, nil
}

// StartCleanup periodically removes export files past their download TTL.
// Runs until the context is cancelled.
func (s *ExportService) StartCleanup(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.store.CleanupOlderThan(s.cfg.SignedURLTTL)
				if err != nil {
					s.logger.Warn("export cleanup failed", zap.Error(err))
					continue
				}
				if len(deleted) > 0 {
					s.logger.Info("export files cleaned up", zap.Int("count", len(deleted)))
				}
			}
		}
	}()
}
