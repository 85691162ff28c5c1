package storage

import (
	"context"

	"voteScope/internal/model"
)

// Storage defines a sink for decoded vote actions.
type Storage interface {
	PutActionBatch(ctx context.Context, records []model.ActionRecord) error
}
