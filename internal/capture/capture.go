// Package capture records new defects: it validates the input against the
// catalog, files the photo, assigns a defect id and inserts the row.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"defectlog/internal/catalog"
	"defectlog/internal/storage"
	"defectlog/pkg/types"

	"github.com/sirupsen/logrus"
)

// maxIDAttempts bounds how many fresh defect ids are tried when the
// generated one collides with a stored row.
const maxIDAttempts = 3

type DefectWriter interface {
	CreateDefect(ctx context.Context, defect *types.Defect) (int64, error)
}

type ProjectPreference interface {
	SetCurrentProject(ctx context.Context, projectTitle string) error
}

type PhotoStore interface {
	CopyFile(ctx context.Context, src string) (string, error)
	UploadFile(ctx context.Context, ext string, r io.Reader) (string, error)
	DeleteFile(path string) error
}

type IDGenerator interface {
	DefectID() string
}

type Service struct {
	logger  *logrus.Logger
	catalog *catalog.Catalog
	writer  DefectWriter
	prefs   ProjectPreference
	photos  PhotoStore
	ids     IDGenerator

	now func() time.Time
}

func NewService(
	logger *logrus.Logger,
	cat *catalog.Catalog,
	writer DefectWriter,
	prefs ProjectPreference,
	photos PhotoStore,
	ids IDGenerator,
) *Service {
	return &Service{
		logger:  logger,
		catalog: cat,
		writer:  writer,
		prefs:   prefs,
		photos:  photos,
		ids:     ids,
		now:     time.Now,
	}
}

// Capture records a defect whose photo is an existing file at
// input.PhotoPath. The photo is copied into the photo library.
func (s *Service) Capture(ctx context.Context, input types.NewDefect) (*types.Defect, error) {
	input, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	if err := storage.CheckSource(input.PhotoPath); err != nil {
		return nil, err
	}

	stored, err := s.photos.CopyFile(ctx, input.PhotoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	return s.record(ctx, input, stored)
}

// CaptureUpload records a defect whose photo arrives as a stream, e.g. a
// multipart upload. ext is the original file extension.
func (s *Service) CaptureUpload(ctx context.Context, input types.NewDefect, ext string, photo io.Reader) (*types.Defect, error) {
	input, err := s.validate(input)
	if err != nil {
		return nil, err
	}

	if photo == nil {
		return nil, types.NewValidationError("photo", "a photo is required")
	}

	stored, err := s.photos.UploadFile(ctx, ext, photo)
	if err != nil {
		return nil, fmt.Errorf("failed to store photo: %w", err)
	}

	return s.record(ctx, input, stored)
}

func (s *Service) record(ctx context.Context, input types.NewDefect, photoPath string) (*types.Defect, error) {
	defect := &types.Defect{
		ProjectTitle: input.ProjectTitle,
		ServiceType:  input.ServiceType,
		Category:     input.Category,
		Location:     input.Location,
		Remarks:      input.Remarks,
		PhotoPath:    photoPath,
		CreatedAt:    types.NewTimestamp(s.now()),
	}

	var err error
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		defect.DefectID = s.ids.DefectID()

		_, err = s.writer.CreateDefect(ctx, defect)
		if err == nil || !errors.Is(err, types.ErrDuplicateDefectID) {
			break
		}

		s.logger.WithFields(logrus.Fields{
			"defectId": defect.DefectID,
			"attempt":  attempt,
		}).Warn("defect id collided with a stored defect, generating a new one")
	}

	if err != nil {
		if rmErr := s.photos.DeleteFile(photoPath); rmErr != nil {
			s.logger.WithError(rmErr).WithField("photoPath", photoPath).Error("failed to remove photo of rejected defect")
		}
		return nil, err
	}

	if err := s.prefs.SetCurrentProject(ctx, defect.ProjectTitle); err != nil {
		s.logger.WithError(err).WithField("project", defect.ProjectTitle).Warn("failed to remember current project")
	}

	s.logger.WithFields(logrus.Fields{
		"id":          defect.ID,
		"defectId":    defect.DefectID,
		"project":     defect.ProjectTitle,
		"serviceType": defect.ServiceType,
	}).Info("defect recorded")

	return defect, nil
}

// validate normalizes input and checks it against the catalog. Nothing is
// written before it passes.
func (s *Service) validate(input types.NewDefect) (types.NewDefect, error) {
	input.ProjectTitle = strings.TrimSpace(input.ProjectTitle)
	input.Category = strings.TrimSpace(input.Category)
	input.Location = strings.TrimSpace(input.Location)
	input.Remarks = strings.TrimSpace(input.Remarks)

	if input.ProjectTitle == "" {
		return input, types.NewValidationError("projectTitle", "project title is required")
	}

	st, ok := s.catalog.ParseServiceType(string(input.ServiceType))
	if !ok {
		return input, types.NewValidationError("serviceType", fmt.Sprintf("unknown service type %q", input.ServiceType))
	}
	input.ServiceType = st

	if input.Category == "" {
		return input, types.NewValidationError("category", "category is required")
	}
	if !s.catalog.HasCategory(st, input.Category) {
		return input, types.NewValidationError("category", fmt.Sprintf("%q is not a %s category", input.Category, st))
	}

	if input.Location == "" {
		return input, types.NewValidationError("location", "location is required")
	}

	if n := utf8.RuneCountInString(input.Remarks); n > types.MaxRemarksLength {
		return input, types.NewValidationError("remarks", fmt.Sprintf("remarks are limited to %d characters, got %d", types.MaxRemarksLength, n))
	}

	return input, nil
}
