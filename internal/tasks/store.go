package tasks

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("task not found")

type Filters struct {
	Status   string
	Priority string
}

// Draft is the field set accepted at creation time; enrichment output lands
// in Priority, Category and EstimatedMinutes.
type Draft struct {
	Title            string
	Description      string
	Priority         string
	Category         string
	EstimatedMinutes *int
}

// Patch carries partial updates; nil fields keep the stored value.
type Patch struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
}

type Store interface {
	List(ctx context.Context, userID int, f Filters) ([]Task, error)
	Get(ctx context.Context, userID, id int) (Task, error)
	Create(ctx context.Context, userID int, d Draft) (Task, error)
	Update(ctx context.Context, userID, id int, p Patch) (Task, error)
	Delete(ctx context.Context, userID, id int) error
	Stats(ctx context.Context, userID int) (Stats, error)
	BulkSetStatus(ctx context.Context, userID int, ids []int, status string) ([]Task, error)
}
