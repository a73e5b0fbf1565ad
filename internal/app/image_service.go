package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"agrovision/internal/model"
	"agrovision/internal/repository"
	"agrovision/internal/storage"
	"agrovision/internal/vision"
)

// Predictor classifies one encoded image.
type Predictor interface {
	Classify(r io.Reader) (vision.Prediction, error)
}

// OrphanPublisher schedules removal of a stored object whose metadata row
// could not be written.
type OrphanPublisher interface {
	PublishOrphan(ctx context.Context, filename string) error
}

type ImageService struct {
	imageRepo *repository.ImageRepository
	store     storage.Storage
	predictor Predictor
	orphans   OrphanPublisher
	log       *zap.Logger
}

type UploadInput struct {
	UserID   uint
	Filename string
	File     io.Reader
}

type UploadResult struct {
	Image      *model.Image
	Prediction vision.Prediction
}

func NewImageService(
	imageRepo *repository.ImageRepository,
	store storage.Storage,
	predictor Predictor,
	orphans OrphanPublisher,
	log *zap.Logger,
) *ImageService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImageService{
		imageRepo: imageRepo,
		store:     store,
		predictor: predictor,
		orphans:   orphans,
		log:       log,
	}
}

// Upload stores the file, records it for the user and classifies it.
//
// The file write and the row insert are not atomic. When classification
// fails the stored image and its row are kept, and the returned result
// still carries the image alongside an ErrInference error.
func (s *ImageService) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	if input.UserID == 0 || input.Filename == "" || input.File == nil {
		return nil, ErrValidation
	}
	if !AllowedFile(input.Filename) {
		return nil, ErrFormat
	}

	name := StorageName(input.Filename)
	if err := s.store.Save(ctx, name, input.File); err != nil {
		return nil, fmt.Errorf("save upload failed: %w", err)
	}

	image := &model.Image{Filename: name, UserID: input.UserID}
	if err := s.imageRepo.Create(ctx, image); err != nil {
		s.log.Error("image row not recorded, stored file is orphaned",
			zap.String("filename", name), zap.Uint("user_id", input.UserID), zap.Error(err))
		if s.orphans != nil {
			if pubErr := s.orphans.PublishOrphan(ctx, name); pubErr != nil {
				s.log.Error("publish orphan failed", zap.String("filename", name), zap.Error(pubErr))
			}
		}
		return nil, err
	}

	result := &UploadResult{Image: image}
	prediction, err := s.classify(ctx, name)
	if err != nil {
		s.log.Warn("classification failed", zap.String("filename", name), zap.Error(err))
		return result, fmt.Errorf("%w: %v", ErrInference, err)
	}
	result.Prediction = prediction

	s.log.Info("image classified",
		zap.String("filename", name),
		zap.Uint("user_id", input.UserID),
		zap.String("label", prediction.Label),
		zap.Float32("confidence", prediction.Confidence))
	return result, nil
}

func (s *ImageService) classify(ctx context.Context, name string) (vision.Prediction, error) {
	rc, err := s.store.Open(ctx, name)
	if err != nil {
		return vision.Prediction{}, err
	}
	defer rc.Close()
	return s.predictor.Classify(rc)
}

func (s *ImageService) ListForUser(ctx context.Context, userID uint) ([]model.Image, error) {
	if userID == 0 {
		return nil, ErrValidation
	}
	return s.imageRepo.ListByUserID(ctx, userID)
}

func (s *ImageService) owned(ctx context.Context, filename string, userID uint) (*model.Image, error) {
	if userID == 0 || filename == "" {
		return nil, ErrForbidden
	}
	image, err := s.imageRepo.GetByFilenameAndUserID(ctx, filename, userID)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, ErrForbidden
	}
	return image, nil
}

// Delete removes the stored object and then the row. Unknown filenames and
// other users' images both yield ErrForbidden.
func (s *ImageService) Delete(ctx context.Context, filename string, userID uint) error {
	image, err := s.owned(ctx, filename, userID)
	if err != nil {
		return err
	}

	if err := s.store.Remove(ctx, image.Filename); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := s.imageRepo.DeleteByIDAndUserID(ctx, image.ID, userID); err != nil {
		return err
	}

	s.log.Info("image deleted", zap.String("filename", filename), zap.Uint("user_id", userID))
	return nil
}

// ResolveForDisplay returns the public URL of an image owned by userID.
func (s *ImageService) ResolveForDisplay(ctx context.Context, filename string, userID uint) (string, error) {
	image, err := s.owned(ctx, filename, userID)
	if err != nil {
		return "", err
	}
	return s.store.URL(image.Filename), nil
}
