package Store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Barista/Models"
)

func setupTestStore(t *testing.T) *SQLStore {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	store, err := NewSQLStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLStore_Tasks(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	finish := "08:00"
	active := Models.Task{Title: "Open shop", Active: true, RepeatType: Models.RepeatWeekly, Days: []int{1, 2}, ExpectedFinishTime: &finish}
	inactive := Models.Task{ID: "old", Title: "Retired", Active: false, RepeatType: Models.RepeatWeekly, Days: []int{1}}
	require.NoError(t, store.SaveTask(ctx, "shop1", &active))
	require.NoError(t, store.SaveTask(ctx, "shop1", &inactive))
	require.NoError(t, store.SaveTask(ctx, "shop2", &Models.Task{ID: "other", Title: "Other shop", Active: true}))
	assert.NotEmpty(t, active.ID)

	all, err := store.ListTasks(ctx, "shop1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	due, err := store.ActiveTasks(ctx, "shop1")
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, active.ID, due[0].ID)
	assert.Equal(t, []int{1, 2}, due[0].Days)
	assert.Equal(t, Models.TaskTypeCheckbox, due[0].Type)
	require.NotNil(t, due[0].ExpectedFinishTime)
	assert.Equal(t, "08:00", *due[0].ExpectedFinishTime)

	inactive.Active = true
	inactive.Title = "Back again"
	require.NoError(t, store.SaveTask(ctx, "shop1", &inactive))
	got, err := store.GetTask(ctx, "shop1", "old")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, "Back again", got.Title)

	_, err = store.GetTask(ctx, "shop2", "old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_MaterializeResults_SkipsExisting(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t1 := Models.Task{ID: "t1", Title: "Grind beans", Type: Models.TaskTypeCheckbox}
	t2 := Models.Task{ID: "t2", Title: "Photo of counter", Type: Models.TaskTypePhoto}

	created, err := store.MaterializeResults(ctx, "shop1", []Models.TaskResult{Models.NewTaskResult(t1, "2024-06-05")})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	result, err := store.GetResult(ctx, "shop1", "t1_2024-06-05")
	require.NoError(t, err)
	result.Status = Models.StatusDone
	require.NoError(t, store.UpdateResult(ctx, "shop1", result))

	created, err = store.MaterializeResults(ctx, "shop1", []Models.TaskResult{
		Models.NewTaskResult(t1, "2024-06-05"),
		Models.NewTaskResult(t2, "2024-06-05"),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	results, err := store.ListResults(ctx, "shop1", "2024-06-05", "2024-06-05")
	require.NoError(t, err)
	require.Len(t, results, 2)
	byID := map[string]Models.TaskResult{}
	for _, r := range results {
		byID[r.ID] = r
	}
	assert.Equal(t, Models.StatusDone, byID["t1_2024-06-05"].Status)
	assert.Equal(t, Models.StatusNotDone, byID["t2_2024-06-05"].Status)
	assert.False(t, byID["t2_2024-06-05"].CreatedAt.IsZero())

	created, err = store.MaterializeResults(ctx, "shop1", nil)
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSQLStore_ResultsAreScopedPerShop(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	task := Models.Task{ID: "t1", Title: "Same id"}

	for _, shop := range []string{"shop1", "shop2"} {
		created, err := store.MaterializeResults(ctx, shop, []Models.TaskResult{Models.NewTaskResult(task, "2024-06-05")})
		require.NoError(t, err)
		assert.Equal(t, 1, created, shop)
	}

	_, err := store.GetResult(ctx, "shop3", "t1_2024-06-05")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.UpdateResult(ctx, "shop3", Models.TaskResult{ID: "t1_2024-06-05"}), ErrNotFound)
}

func TestSQLStore_UpdateResultKeepsSnapshot(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	task := Models.Task{ID: "t1", Title: "Original title"}

	_, err := store.MaterializeResults(ctx, "shop1", []Models.TaskResult{Models.NewTaskResult(task, "2024-06-05")})
	require.NoError(t, err)

	result, err := store.GetResult(ctx, "shop1", "t1_2024-06-05")
	require.NoError(t, err)
	comment := "looks good"
	result.Title = "Changed"
	result.Status = Models.StatusApproved
	result.ReviewComment = &comment
	require.NoError(t, store.UpdateResult(ctx, "shop1", result))

	got, err := store.GetResult(ctx, "shop1", "t1_2024-06-05")
	require.NoError(t, err)
	assert.Equal(t, "Original title", got.Title)
	assert.Equal(t, Models.StatusApproved, got.Status)
	require.NotNil(t, got.ReviewComment)
	assert.Equal(t, "looks good", *got.ReviewComment)
}

func TestSQLStore_CoffeeshopsAndProfiles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	shop := Models.Coffeeshop{Name: "Central", Location: Models.GeoPoint{Latitude: 43.25, Longitude: 76.95}}
	require.NoError(t, store.CreateCoffeeshop(ctx, &shop))
	assert.NotEmpty(t, shop.ID)

	shops, err := store.ListCoffeeshops(ctx)
	require.NoError(t, err)
	require.Len(t, shops, 1)
	assert.Equal(t, shop, shops[0])

	_, err = store.GetProfile(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	profile := Models.UserProfile{ID: "u1", Name: "Aru", Role: Models.RoleAdmin, Login: "aru@example.com", CoffeeshopID: &shop.ID}
	require.NoError(t, store.SaveProfile(ctx, profile))
	got, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, profile, got)
}

func TestSQLStore_MaterializeResults_FailedBatchLeavesNothing(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	opening := Models.Task{ID: "open", Title: "Open shop"}
	closing := Models.Task{ID: "close", Title: "Close shop"}

	_, err := store.MaterializeResults(ctx, "shop1", []Models.TaskResult{Models.NewTaskResult(opening, "2024-06-05")})
	require.NoError(t, err)

	// fail after the insert ran, inside the transaction
	var inserted int64
	err = store.DB().Callback().Create().After("gorm:create").Register("test:fail_results", func(tx *gorm.DB) {
		if tx.Statement.Table == "task_results" {
			inserted = tx.Statement.RowsAffected
			tx.AddError(errors.New("disk I/O error"))
		}
	})
	require.NoError(t, err)

	created, err := store.MaterializeResults(ctx, "shop2", []Models.TaskResult{
		Models.NewTaskResult(opening, "2024-06-05"),
		Models.NewTaskResult(closing, "2024-06-05"),
	})
	assert.ErrorContains(t, err, "disk I/O error")
	assert.Zero(t, created)
	assert.EqualValues(t, 2, inserted)

	require.NoError(t, store.DB().Callback().Create().Remove("test:fail_results"))
	results, err := store.ListResults(ctx, "shop2", "2024-06-05", "2024-06-05")
	require.NoError(t, err)
	assert.Empty(t, results)
	results, err = store.ListResults(ctx, "shop1", "2024-06-05", "2024-06-05")
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestSQLStore_GetCoffeeshop(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	shop := Models.Coffeeshop{ID: "shop1", Name: "Central", Location: Models.GeoPoint{Latitude: 43.25, Longitude: 76.95}}
	require.NoError(t, store.CreateCoffeeshop(ctx, &shop))

	got, err := store.GetCoffeeshop(ctx, "shop1")
	require.NoError(t, err)
	assert.Equal(t, shop, got)

	_, err = store.GetCoffeeshop(ctx, "shop-typo")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLStore_ListProfiles(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	shop1, shop2 := "shop1", "shop2"
	where := Models.GeoPoint{Latitude: 43.25, Longitude: 76.95}
	profiles := []Models.UserProfile{
		{ID: "u1", Name: "Bota", Role: Models.RoleStaff, CoffeeshopID: &shop1, CoffeeshopLocation: &where},
		{ID: "u2", Name: "Aru", Role: Models.RoleAdmin, CoffeeshopID: &shop1},
		{ID: "u3", Name: "Dana", Role: Models.RoleStaff, CoffeeshopID: &shop2},
		{ID: "root", Name: "Root", Role: Models.RoleSuperadmin},
	}
	for _, p := range profiles {
		require.NoError(t, store.SaveProfile(ctx, p))
	}

	got, err := store.ListProfiles(ctx, "shop1")
	require.NoError(t, err)
	assert.Equal(t, []Models.UserProfile{profiles[1], profiles[0]}, got)

	all, err := store.ListProfiles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := store.ListProfiles(ctx, "shop3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLStore_Shifts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	checkIn := time.Date(2024, 6, 5, 2, 0, 0, 0, time.UTC)

	_, err := store.OpenShift(ctx, "shop1", "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	shift := Models.Shift{UserID: "u1", Date: "2024-06-05", Location: Models.GeoPoint{Latitude: 43.25, Longitude: 76.95}, Distance: 12, CheckIn: checkIn}
	require.NoError(t, store.CreateShift(ctx, "shop1", &shift))
	assert.NotEmpty(t, shift.ID)

	again := Models.Shift{UserID: "u1", Date: "2024-06-05", CheckIn: checkIn.Add(time.Hour)}
	assert.ErrorIs(t, store.CreateShift(ctx, "shop1", &again), ErrShiftOpen)
	require.NoError(t, store.CreateShift(ctx, "shop2", &again))

	open, err := store.OpenShift(ctx, "shop1", "u1")
	require.NoError(t, err)
	assert.Equal(t, shift.ID, open.ID)
	assert.True(t, open.Open())

	out := checkIn.Add(9 * time.Hour)
	open.CheckOut = &out
	require.NoError(t, store.CloseShift(ctx, "shop1", open))
	assert.ErrorIs(t, store.CloseShift(ctx, "shop1", Models.Shift{ID: "missing", CheckOut: &out}), ErrNotFound)

	_, err = store.OpenShift(ctx, "shop1", "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	shifts, err := store.ListShifts(ctx, "shop1", "2024-06-01", "2024-06-30")
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, 12.0, shifts[0].Distance)
	require.NotNil(t, shifts[0].CheckOut)
	assert.True(t, out.Equal(*shifts[0].CheckOut))
	assert.True(t, checkIn.Equal(shifts[0].CheckIn))
}
