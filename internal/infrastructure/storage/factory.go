package storage

import (
	"fmt"

	"go.uber.org/zap"

	appbilling "github.com/rentledger/backend/internal/application/billing"
	"github.com/rentledger/backend/internal/infrastructure/config"
)

// NewProofImageStorage builds the proof image store selected by configuration
func NewProofImageStorage(cfg config.StorageConfig, logger *zap.Logger) (appbilling.ProofImageStorage, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3ProofImageStorage(cfg, WithLogger(logger))
	case "stub":
		return NewStubProofImageStorage(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
}
