package database

import (
	"context"

	"arbsim/internal/model"
)

// Repository defines the standard interface for trade persistence.
type Repository interface {
	LogTrade(ctx context.Context, trade model.Trade) error
}
