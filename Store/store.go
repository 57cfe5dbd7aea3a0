// Package Store persists coffeeshops, tasks, task results and user profiles.
// Two backends exist: Firestore for production and gorm (sqlite or mysql)
// for local runs and tests.
package Store

import (
	"context"
	"errors"

	"Barista/Models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrShiftOpen = errors.New("shift already open")
)

type Store interface {
	ListCoffeeshops(ctx context.Context) ([]Models.Coffeeshop, error)
	GetCoffeeshop(ctx context.Context, shopID string) (Models.Coffeeshop, error)
	CreateCoffeeshop(ctx context.Context, shop *Models.Coffeeshop) error

	ListTasks(ctx context.Context, shopID string) ([]Models.Task, error)
	ActiveTasks(ctx context.Context, shopID string) ([]Models.Task, error)
	GetTask(ctx context.Context, shopID, taskID string) (Models.Task, error)
	SaveTask(ctx context.Context, shopID string, task *Models.Task) error

	// MaterializeResults writes all results for one coffeeshop atomically.
	// Results whose id already exists are left untouched; the returned count
	// covers newly created results only.
	MaterializeResults(ctx context.Context, shopID string, results []Models.TaskResult) (int, error)
	ListResults(ctx context.Context, shopID, from, to string) ([]Models.TaskResult, error)
	GetResult(ctx context.Context, shopID, resultID string) (Models.TaskResult, error)
	UpdateResult(ctx context.Context, shopID string, result Models.TaskResult) error

	GetProfile(ctx context.Context, uid string) (Models.UserProfile, error)
	SaveProfile(ctx context.Context, profile Models.UserProfile) error
	// ListProfiles returns the profiles bound to shopID, or every profile
	// when shopID is empty.
	ListProfiles(ctx context.Context, shopID string) ([]Models.UserProfile, error)

	// OpenShift returns the shift userID has not checked out of yet.
	OpenShift(ctx context.Context, shopID, userID string) (Models.Shift, error)
	// CreateShift fails with ErrShiftOpen while userID has an open shift.
	CreateShift(ctx context.Context, shopID string, shift *Models.Shift) error
	CloseShift(ctx context.Context, shopID string, shift Models.Shift) error
	ListShifts(ctx context.Context, shopID, from, to string) ([]Models.Shift, error)

	Close() error
}
