package store

import (
	"context"

	"github.com/nhle/checklist/internal/model"
)

// Store defines the persistence interface for lists, statuses and their
// position-ordered entries.
type Store interface {
	// === Read views ===

	Tables(ctx context.Context) ([]model.List, error)
	AllLists(ctx context.Context) ([]model.List, error)
	List(ctx context.Context, name string) (*model.List, error)
	ListByID(ctx context.Context, id int64) (*model.List, error)
	Statuses(ctx context.Context, listName string) ([]model.StatusColumn, error)
	Info(ctx context.Context, listName string, limit int) ([]model.StatusGroup, error)
	Overview(ctx context.Context, limit int) ([]model.ListOverview, error)

	// === Entry lifecycle ===

	Insert(ctx context.Context, cmd model.InsertCommand, listName string) error
	UpdateOrMove(ctx context.Context, cmd model.UpdateCommand) (string, error)
	Delete(ctx context.Context, cmd model.DeleteCommand) error

	// === Settings ===

	GetSettings(ctx context.Context) (*model.Settings, error)
	ApplySettings(ctx context.Context, cmd model.SettingsCommand) (*model.SettingsResult, error)
	SetListStatuses(ctx context.Context, listName string, statusIDs []int64) error

	// === Bulk transfer ===

	Export(ctx context.Context) (*model.Snapshot, error)
	Import(ctx context.Context, snap *model.Snapshot) error

	// === Maintenance ===

	CheckDensity(ctx context.Context) ([]model.DensityViolation, error)
	Close() error
}
