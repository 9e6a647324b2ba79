package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rentledger/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ProofImageStorage abstracts the object store holding transfer proof images.
// Implementations live in the infrastructure layer (S3-compatible stores and
// a development stub).
type ProofImageStorage interface {
	// GenerateUploadURL returns a presigned URL the client PUTs the image to
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL returns a presigned URL for viewing a stored image
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)

	// ObjectExists checks whether the image was actually uploaded
	ObjectExists(ctx context.Context, storageKey string) (bool, error)

	// DeleteObject removes a stored image
	DeleteObject(ctx context.Context, storageKey string) error
}

// allowedProofContentTypes maps accepted image content types to file extensions
var allowedProofContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

const proofURLExpiration = 15 * time.Minute

// ProofUploadService hands out presigned upload slots for transfer proof
// images. The claim itself only ever stores the resulting URL; image bytes
// never pass through the API.
type ProofUploadService struct {
	storage       ProofImageStorage
	publicBaseURL string
	logger        *zap.Logger
}

// NewProofUploadService creates a new ProofUploadService
func NewProofUploadService(storage ProofImageStorage, publicBaseURL string, logger *zap.Logger) *ProofUploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProofUploadService{
		storage:       storage,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logger,
	}
}

// ProofUploadResponse is the DTO returned for an upload request
type ProofUploadResponse struct {
	UploadURL  string    `json:"upload_url"`
	PublicURL  string    `json:"public_url"`
	StorageKey string    `json:"storage_key"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// RequestUpload allocates a storage key for a proof image and returns a
// presigned upload URL together with the public URL to put on the claim.
func (s *ProofUploadService) RequestUpload(ctx context.Context, tenantID, invoiceID uuid.UUID, contentType string) (*ProofUploadResponse, error) {
	ext, ok := allowedProofContentTypes[contentType]
	if !ok {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("Unsupported proof image content type: %s", contentType))
	}

	storageKey := fmt.Sprintf("proofs/%s/%s/%s%s", tenantID, invoiceID, uuid.New(), ext)

	uploadURL, expiresAt, err := s.storage.GenerateUploadURL(ctx, storageKey, contentType, proofURLExpiration)
	if err != nil {
		s.logger.Error("Failed to generate proof upload URL",
			zap.String("storage_key", storageKey),
			zap.Error(err))
		return nil, err
	}

	return &ProofUploadResponse{
		UploadURL:  uploadURL,
		PublicURL:  s.publicBaseURL + "/" + storageKey,
		StorageKey: storageKey,
		ExpiresAt:  expiresAt,
	}, nil
}

// GetProofDownloadURL returns a short-lived presigned URL for viewing an
// uploaded proof image during review.
func (s *ProofUploadService) GetProofDownloadURL(ctx context.Context, storageKey string) (string, error) {
	if storageKey == "" {
		return "", shared.ErrInvalidInput
	}

	exists, err := s.storage.ObjectExists(ctx, storageKey)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", shared.ErrNotFound
	}

	url, _, err := s.storage.GenerateDownloadURL(ctx, storageKey, proofURLExpiration)
	if err != nil {
		return "", err
	}
	return url, nil
}
