package Store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"Barista/Models"
)

type coffeeshopRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string
	Latitude  float64
	Longitude float64
	CreatedAt time.Time
}

func (coffeeshopRow) TableName() string { return "coffeeshops" }

type taskRow struct {
	ShopID             string `gorm:"primaryKey;size:64"`
	ID                 string `gorm:"primaryKey;size:64"`
	Title              string
	Type               string
	Active             bool `gorm:"index"`
	RepeatType         string
	Days               datatypes.JSON
	ScheduledDate      string `gorm:"size:10"`
	ExpectedFinishTime *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (taskRow) TableName() string { return "tasks" }

type taskResultRow struct {
	ShopID             string `gorm:"primaryKey;size:64"`
	ID                 string `gorm:"primaryKey;size:128"`
	TaskID             string `gorm:"index;size:64"`
	Title              string
	Type               string
	Status             string `gorm:"size:16"`
	Date               string `gorm:"index;size:10"`
	ExpectedFinishTime *string
	UserID             *string
	PhotoURL           *string
	ReviewComment      *string
	ActualFinishTime   *time.Time
	CreatedAt          time.Time `gorm:"autoCreateTime"`
}

func (taskResultRow) TableName() string { return "task_results" }

type profileRow struct {
	ID            string `gorm:"primaryKey;size:128"`
	Name          string
	Role          string  `gorm:"size:16"`
	Login         string  `gorm:"index"`
	CoffeeshopID  *string `gorm:"index;size:64"`
	ShopLatitude  *float64
	ShopLongitude *float64
}

func (profileRow) TableName() string { return "users" }

type shiftRow struct {
	ShopID    string `gorm:"primaryKey;size:64"`
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"index;size:128"`
	Date      string `gorm:"index;size:10"`
	Latitude  float64
	Longitude float64
	Distance  float64
	CheckIn   time.Time
	CheckOut  *time.Time
}

func (shiftRow) TableName() string { return "shifts" }

// SQLStore is the gorm backed Store.
type SQLStore struct {
	db *gorm.DB
}

// Open connects to sqlite or mysql and migrates the schema.
func Open(driver, dsn string) (*SQLStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}
	return NewSQLStore(db)
}

func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&coffeeshopRow{}, &taskRow{}, &taskResultRow{}, &profileRow{}, &shiftRow{}); err != nil {
		return nil, fmt.Errorf("error migrating schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// DB exposes the connection for components that keep their own tables.
func (s *SQLStore) DB() *gorm.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQLStore) ListCoffeeshops(ctx context.Context) ([]Models.Coffeeshop, error) {
	var rows []coffeeshopRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error listing coffeeshops: %w", err)
	}
	shops := make([]Models.Coffeeshop, 0, len(rows))
	for _, r := range rows {
		shops = append(shops, r.coffeeshop())
	}
	return shops, nil
}

func (s *SQLStore) GetCoffeeshop(ctx context.Context, shopID string) (Models.Coffeeshop, error) {
	var row coffeeshopRow
	err := s.db.WithContext(ctx).Where("id = ?", shopID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Models.Coffeeshop{}, ErrNotFound
	}
	if err != nil {
		return Models.Coffeeshop{}, fmt.Errorf("error loading coffeeshop %s: %w", shopID, err)
	}
	return row.coffeeshop(), nil
}

func (r coffeeshopRow) coffeeshop() Models.Coffeeshop {
	return Models.Coffeeshop{
		ID:       r.ID,
		Name:     r.Name,
		Location: Models.GeoPoint{Latitude: r.Latitude, Longitude: r.Longitude},
	}
}

func (s *SQLStore) CreateCoffeeshop(ctx context.Context, shop *Models.Coffeeshop) error {
	if shop.ID == "" {
		shop.ID = uuid.NewString()
	}
	row := coffeeshopRow{
		ID:        shop.ID,
		Name:      shop.Name,
		Latitude:  shop.Location.Latitude,
		Longitude: shop.Location.Longitude,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("error creating coffeeshop: %w", err)
	}
	return nil
}

func (s *SQLStore) ListTasks(ctx context.Context, shopID string) ([]Models.Task, error) {
	return s.findTasks(ctx, s.db.Where("shop_id = ?", shopID))
}

func (s *SQLStore) ActiveTasks(ctx context.Context, shopID string) ([]Models.Task, error) {
	return s.findTasks(ctx, s.db.Where("shop_id = ? AND active = ?", shopID, true))
}

func (s *SQLStore) findTasks(ctx context.Context, q *gorm.DB) ([]Models.Task, error) {
	var rows []taskRow
	if err := q.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}
	tasks := make([]Models.Task, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, r.task())
	}
	return tasks, nil
}

func (s *SQLStore) GetTask(ctx context.Context, shopID, taskID string) (Models.Task, error) {
	var row taskRow
	err := s.db.WithContext(ctx).Where("shop_id = ? AND id = ?", shopID, taskID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Models.Task{}, ErrNotFound
	}
	if err != nil {
		return Models.Task{}, fmt.Errorf("error loading task %s: %w", taskID, err)
	}
	return row.task(), nil
}

func (s *SQLStore) SaveTask(ctx context.Context, shopID string, task *Models.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	days, err := json.Marshal(task.Days)
	if err != nil {
		return fmt.Errorf("error encoding days: %w", err)
	}
	row := taskRow{
		ShopID:             shopID,
		ID:                 task.ID,
		Title:              task.Title,
		Type:               string(task.Type),
		Active:             task.Active,
		RepeatType:         string(task.RepeatType),
		Days:               datatypes.JSON(days),
		ScheduledDate:      task.ScheduledDate,
		ExpectedFinishTime: task.ExpectedFinishTime,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "shop_id"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "type", "active", "repeat_type", "days",
			"scheduled_date", "expected_finish_time", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("error saving task %s: %w", task.ID, err)
	}
	return nil
}

// task runs the stored row through the same normalization as a raw
// document so both backends agree on defaults.
func (r taskRow) task() Models.Task {
	fields := map[string]interface{}{
		"title":          r.Title,
		"type":           r.Type,
		"active":         r.Active,
		"repeat_type":    r.RepeatType,
		"scheduled_date": r.ScheduledDate,
	}
	var days []int
	if len(r.Days) > 0 && json.Unmarshal(r.Days, &days) == nil {
		fields["days"] = days
	}
	if r.ExpectedFinishTime != nil {
		fields["expected_finish_time"] = *r.ExpectedFinishTime
	}
	return Models.TaskFromFields(r.ID, fields)
}

func (s *SQLStore) MaterializeResults(ctx context.Context, shopID string, results []Models.TaskResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	rows := make([]taskResultRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, resultRow(shopID, r))
	}

	var created int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if res.Error != nil {
			return res.Error
		}
		created = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error committing results for coffeeshop %s: %w", shopID, err)
	}
	return created, nil
}

func (s *SQLStore) ListResults(ctx context.Context, shopID, from, to string) ([]Models.TaskResult, error) {
	var rows []taskResultRow
	err := s.db.WithContext(ctx).
		Where("shop_id = ? AND date >= ? AND date <= ?", shopID, from, to).
		Order("date, title, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error listing results: %w", err)
	}
	results := make([]Models.TaskResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.result())
	}
	return results, nil
}

func (s *SQLStore) GetResult(ctx context.Context, shopID, resultID string) (Models.TaskResult, error) {
	var row taskResultRow
	err := s.db.WithContext(ctx).Where("shop_id = ? AND id = ?", shopID, resultID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Models.TaskResult{}, ErrNotFound
	}
	if err != nil {
		return Models.TaskResult{}, fmt.Errorf("error loading result %s: %w", resultID, err)
	}
	return row.result(), nil
}

// UpdateResult writes the workflow fields only. The snapshot taken at
// materialization time is immutable.
func (s *SQLStore) UpdateResult(ctx context.Context, shopID string, result Models.TaskResult) error {
	if _, err := s.GetResult(ctx, shopID, result.ID); err != nil {
		return err
	}
	row := resultRow(shopID, result)
	err := s.db.WithContext(ctx).
		Model(&taskResultRow{ShopID: shopID, ID: result.ID}).
		Select("status", "user_id", "photo_url", "review_comment", "actual_finish_time").
		Updates(&row).Error
	if err != nil {
		return fmt.Errorf("error updating result %s: %w", result.ID, err)
	}
	return nil
}

func resultRow(shopID string, r Models.TaskResult) taskResultRow {
	return taskResultRow{
		ShopID:             shopID,
		ID:                 r.ID,
		TaskID:             r.TaskID,
		Title:              r.Title,
		Type:               string(r.Type),
		Status:             string(r.Status),
		Date:               r.Date,
		ExpectedFinishTime: r.ExpectedFinishTime,
		UserID:             r.UserID,
		PhotoURL:           r.PhotoURL,
		ReviewComment:      r.ReviewComment,
		ActualFinishTime:   r.ActualFinishTime,
	}
}

func (r taskResultRow) result() Models.TaskResult {
	return Models.TaskResult{
		ID:                 r.ID,
		TaskID:             r.TaskID,
		Title:              r.Title,
		Type:               Models.TaskType(r.Type),
		Status:             Models.TaskResultStatus(r.Status),
		Date:               r.Date,
		ExpectedFinishTime: r.ExpectedFinishTime,
		CreatedAt:          r.CreatedAt,
		UserID:             r.UserID,
		PhotoURL:           r.PhotoURL,
		ReviewComment:      r.ReviewComment,
		ActualFinishTime:   r.ActualFinishTime,
	}
}

func (s *SQLStore) GetProfile(ctx context.Context, uid string) (Models.UserProfile, error) {
	var row profileRow
	err := s.db.WithContext(ctx).Where("id = ?", uid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Models.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return Models.UserProfile{}, fmt.Errorf("error loading profile %s: %w", uid, err)
	}
	return row.profile(), nil
}

func (s *SQLStore) ListProfiles(ctx context.Context, shopID string) ([]Models.UserProfile, error) {
	q := s.db.WithContext(ctx)
	if shopID != "" {
		q = q.Where("coffeeshop_id = ?", shopID)
	}
	var rows []profileRow
	if err := q.Order("name, id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("error listing profiles: %w", err)
	}
	profiles := make([]Models.UserProfile, 0, len(rows))
	for _, r := range rows {
		profiles = append(profiles, r.profile())
	}
	return profiles, nil
}

func (s *SQLStore) SaveProfile(ctx context.Context, p Models.UserProfile) error {
	row := profileRow{
		ID:           p.ID,
		Name:         p.Name,
		Role:         string(p.Role),
		Login:        p.Login,
		CoffeeshopID: p.CoffeeshopID,
	}
	if p.CoffeeshopLocation != nil {
		row.ShopLatitude = &p.CoffeeshopLocation.Latitude
		row.ShopLongitude = &p.CoffeeshopLocation.Longitude
	}
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("error saving profile %s: %w", p.ID, err)
	}
	return nil
}

func (r profileRow) profile() Models.UserProfile {
	p := Models.UserProfile{
		ID:           r.ID,
		Name:         r.Name,
		Role:         Models.ParseRole(r.Role),
		Login:        r.Login,
		CoffeeshopID: r.CoffeeshopID,
	}
	if r.ShopLatitude != nil && r.ShopLongitude != nil {
		p.CoffeeshopLocation = &Models.GeoPoint{Latitude: *r.ShopLatitude, Longitude: *r.ShopLongitude}
	}
	return p
}

func (s *SQLStore) OpenShift(ctx context.Context, shopID, userID string) (Models.Shift, error) {
	var row shiftRow
	err := s.db.WithContext(ctx).
		Where("shop_id = ? AND user_id = ? AND check_out IS NULL", shopID, userID).
		Order("check_in DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Models.Shift{}, ErrNotFound
	}
	if err != nil {
		return Models.Shift{}, fmt.Errorf("error loading open shift of %s: %w", userID, err)
	}
	return row.shift(), nil
}

func (s *SQLStore) CreateShift(ctx context.Context, shopID string, shift *Models.Shift) error {
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	row := shiftRow{
		ShopID:    shopID,
		ID:        shift.ID,
		UserID:    shift.UserID,
		Date:      shift.Date,
		Latitude:  shift.Location.Latitude,
		Longitude: shift.Location.Longitude,
		Distance:  shift.Distance,
		CheckIn:   shift.CheckIn,
		CheckOut:  shift.CheckOut,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		err := tx.Model(&shiftRow{}).
			Where("shop_id = ? AND user_id = ? AND check_out IS NULL", shopID, shift.UserID).
			Count(&open).Error
		if err != nil {
			return fmt.Errorf("error checking open shifts of %s: %w", shift.UserID, err)
		}
		if open > 0 {
			return ErrShiftOpen
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("error creating shift: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) CloseShift(ctx context.Context, shopID string, shift Models.Shift) error {
	res := s.db.WithContext(ctx).
		Model(&shiftRow{}).
		Where("shop_id = ? AND id = ?", shopID, shift.ID).
		Update("check_out", shift.CheckOut)
	if res.Error != nil {
		return fmt.Errorf("error closing shift %s: %w", shift.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListShifts(ctx context.Context, shopID, from, to string) ([]Models.Shift, error) {
	var rows []shiftRow
	err := s.db.WithContext(ctx).
		Where("shop_id = ? AND date >= ? AND date <= ?", shopID, from, to).
		Order("date, check_in").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error listing shifts: %w", err)
	}
	shifts := make([]Models.Shift, 0, len(rows))
	for _, r := range rows {
		shifts = append(shifts, r.shift())
	}
	return shifts, nil
}

func (r shiftRow) shift() Models.Shift {
	return Models.Shift{
		ID:       r.ID,
		UserID:   r.UserID,
		Date:     r.Date,
		Location: Models.GeoPoint{Latitude: r.Latitude, Longitude: r.Longitude},
		Distance: r.Distance,
		CheckIn:  r.CheckIn,
		CheckOut: r.CheckOut,
	}
}
