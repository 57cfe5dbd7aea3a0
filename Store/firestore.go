package Store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"Barista/Models"
)

const (
	coffeeshopsCollection = "coffeeshops"
	tasksCollection       = "tasks"
	taskResultsCollection = "task_results"
	shiftsCollection      = "shifts"
	usersCollection       = "users"
	legacyUsersCollection = "Users"
)

// FirestoreStore keeps every tenant under coffeeshops/{id} with tasks and
// task_results as subcollections. Profiles live in the top level users
// collection.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) shop(shopID string) *firestore.DocumentRef {
	return s.client.Collection(coffeeshopsCollection).Doc(shopID)
}

func (s *FirestoreStore) ListCoffeeshops(ctx context.Context) ([]Models.Coffeeshop, error) {
	docs, err := s.client.Collection(coffeeshopsCollection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing coffeeshops: %w", err)
	}
	shops := make([]Models.Coffeeshop, 0, len(docs))
	for _, doc := range docs {
		shops = append(shops, coffeeshopFromFields(doc.Ref.ID, doc.Data()))
	}
	return shops, nil
}

func (s *FirestoreStore) GetCoffeeshop(ctx context.Context, shopID string) (Models.Coffeeshop, error) {
	doc, err := s.shop(shopID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Models.Coffeeshop{}, ErrNotFound
	}
	if err != nil {
		return Models.Coffeeshop{}, fmt.Errorf("error loading coffeeshop %s: %w", shopID, err)
	}
	return coffeeshopFromFields(doc.Ref.ID, doc.Data()), nil
}

func coffeeshopFromFields(id string, data map[string]interface{}) Models.Coffeeshop {
	shop := Models.Coffeeshop{ID: id}
	shop.Name, _ = data["name"].(string)
	if loc, ok := geoPointFromField(data["location"]); ok {
		shop.Location = loc
	}
	return shop
}

func geoPointFromField(v interface{}) (Models.GeoPoint, bool) {
	loc, ok := v.(map[string]interface{})
	if !ok {
		return Models.GeoPoint{}, false
	}
	var p Models.GeoPoint
	p.Latitude, _ = loc["latitude"].(float64)
	p.Longitude, _ = loc["longitude"].(float64)
	return p, true
}

func (s *FirestoreStore) CreateCoffeeshop(ctx context.Context, shop *Models.Coffeeshop) error {
	ref := s.client.Collection(coffeeshopsCollection).NewDoc()
	if shop.ID != "" {
		ref = s.shop(shop.ID)
	}
	_, err := ref.Create(ctx, map[string]interface{}{
		"name":       shop.Name,
		"location":   shop.Location,
		"created_at": firestore.ServerTimestamp,
	})
	if err != nil {
		return fmt.Errorf("error creating coffeeshop: %w", err)
	}
	shop.ID = ref.ID
	return nil
}

func (s *FirestoreStore) ListTasks(ctx context.Context, shopID string) ([]Models.Task, error) {
	return s.findTasks(ctx, s.shop(shopID).Collection(tasksCollection).Query)
}

func (s *FirestoreStore) ActiveTasks(ctx context.Context, shopID string) ([]Models.Task, error) {
	return s.findTasks(ctx, s.shop(shopID).Collection(tasksCollection).Where("active", "==", true))
}

func (s *FirestoreStore) findTasks(ctx context.Context, q firestore.Query) ([]Models.Task, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing tasks: %w", err)
	}
	tasks := make([]Models.Task, 0, len(docs))
	for _, doc := range docs {
		tasks = append(tasks, Models.TaskFromFields(doc.Ref.ID, doc.Data()))
	}
	return tasks, nil
}

func (s *FirestoreStore) GetTask(ctx context.Context, shopID, taskID string) (Models.Task, error) {
	doc, err := s.shop(shopID).Collection(tasksCollection).Doc(taskID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Models.Task{}, ErrNotFound
	}
	if err != nil {
		return Models.Task{}, fmt.Errorf("error loading task %s: %w", taskID, err)
	}
	return Models.TaskFromFields(doc.Ref.ID, doc.Data()), nil
}

func (s *FirestoreStore) SaveTask(ctx context.Context, shopID string, task *Models.Task) error {
	tasks := s.shop(shopID).Collection(tasksCollection)
	ref := tasks.NewDoc()
	if task.ID != "" {
		ref = tasks.Doc(task.ID)
	}
	fields := task.Fields()
	fields["updated_at"] = firestore.ServerTimestamp
	if _, err := ref.Set(ctx, fields, firestore.MergeAll); err != nil {
		return fmt.Errorf("error saving task %s: %w", ref.ID, err)
	}
	task.ID = ref.ID
	return nil
}

// MaterializeResults reads every target id inside one transaction and only
// creates the missing ones, so a result a staff member already touched is
// never rewritten.
func (s *FirestoreStore) MaterializeResults(ctx context.Context, shopID string, results []Models.TaskResult) (int, error) {
	if len(results) == 0 {
		return 0, nil
	}
	coll := s.shop(shopID).Collection(taskResultsCollection)
	refs := make([]*firestore.DocumentRef, len(results))
	for i, r := range results {
		refs[i] = coll.Doc(r.ID)
	}

	var created int
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		created = 0
		snaps, err := tx.GetAll(refs)
		if err != nil {
			return err
		}
		for i, snap := range snaps {
			if snap.Exists() {
				continue
			}
			if err := tx.Create(refs[i], resultFields(results[i])); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error committing results for coffeeshop %s: %w", shopID, err)
	}
	return created, nil
}

func resultFields(r Models.TaskResult) map[string]interface{} {
	fields := map[string]interface{}{
		"task_id":              r.TaskID,
		"title":                r.Title,
		"type":                 string(r.Type),
		"status":               string(r.Status),
		"date":                 r.Date,
		"expected_finish_time": nil,
		"created_at":           firestore.ServerTimestamp,
	}
	if r.ExpectedFinishTime != nil {
		fields["expected_finish_time"] = *r.ExpectedFinishTime
	}
	return fields
}

func (s *FirestoreStore) ListResults(ctx context.Context, shopID, from, to string) ([]Models.TaskResult, error) {
	docs, err := s.shop(shopID).Collection(taskResultsCollection).
		Where("date", ">=", from).
		Where("date", "<=", to).
		OrderBy("date", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing results: %w", err)
	}
	results := make([]Models.TaskResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, resultFromFields(doc.Ref.ID, doc.Data()))
	}
	return results, nil
}

func (s *FirestoreStore) GetResult(ctx context.Context, shopID, resultID string) (Models.TaskResult, error) {
	doc, err := s.shop(shopID).Collection(taskResultsCollection).Doc(resultID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Models.TaskResult{}, ErrNotFound
	}
	if err != nil {
		return Models.TaskResult{}, fmt.Errorf("error loading result %s: %w", resultID, err)
	}
	return resultFromFields(doc.Ref.ID, doc.Data()), nil
}

func (s *FirestoreStore) UpdateResult(ctx context.Context, shopID string, r Models.TaskResult) error {
	ref := s.shop(shopID).Collection(taskResultsCollection).Doc(r.ID)
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: string(r.Status)},
		{Path: "user_id", Value: r.UserID},
		{Path: "photo_url", Value: r.PhotoURL},
		{Path: "review_comment", Value: r.ReviewComment},
		{Path: "actual_finish_time", Value: r.ActualFinishTime},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error updating result %s: %w", r.ID, err)
	}
	return nil
}

func resultFromFields(id string, data map[string]interface{}) Models.TaskResult {
	r := Models.TaskResult{ID: id}
	r.TaskID, _ = data["task_id"].(string)
	r.Title, _ = data["title"].(string)
	if t, ok := data["type"].(string); ok {
		r.Type = Models.TaskType(t)
	}
	if st, ok := data["status"].(string); ok {
		r.Status = Models.TaskResultStatus(st)
	}
	r.Date, _ = data["date"].(string)
	r.CreatedAt, _ = data["created_at"].(time.Time)
	r.ExpectedFinishTime = optionalString(data["expected_finish_time"])
	r.UserID = optionalString(data["user_id"])
	r.PhotoURL = optionalString(data["photo_url"])
	r.ReviewComment = optionalString(data["review_comment"])
	if t, ok := data["actual_finish_time"].(time.Time); ok {
		r.ActualFinishTime = &t
	}
	return r
}

func optionalString(v interface{}) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func (s *FirestoreStore) GetProfile(ctx context.Context, uid string) (Models.UserProfile, error) {
	doc, err := s.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return Models.UserProfile{}, ErrNotFound
	}
	if err != nil {
		return Models.UserProfile{}, fmt.Errorf("error loading profile %s: %w", uid, err)
	}
	return profileFromFields(uid, doc.Data()), nil
}

func (s *FirestoreStore) ListProfiles(ctx context.Context, shopID string) ([]Models.UserProfile, error) {
	q := s.client.Collection(usersCollection).Query
	if shopID != "" {
		q = q.Where("coffeeshop_id", "==", shopID)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing profiles: %w", err)
	}
	profiles := make([]Models.UserProfile, 0, len(docs))
	for _, doc := range docs {
		profiles = append(profiles, profileFromFields(doc.Ref.ID, doc.Data()))
	}
	return profiles, nil
}

func (s *FirestoreStore) SaveProfile(ctx context.Context, p Models.UserProfile) error {
	_, err := s.client.Collection(usersCollection).Doc(p.ID).Set(ctx, profileFields(p))
	if err != nil {
		return fmt.Errorf("error saving profile %s: %w", p.ID, err)
	}
	return nil
}

// MigrateLegacyProfiles copies profiles from the old capitalized Users
// collection into users. Profiles already present in users win.
func (s *FirestoreStore) MigrateLegacyProfiles(ctx context.Context) (int, error) {
	docs, err := s.client.Collection(legacyUsersCollection).Documents(ctx).GetAll()
	if err != nil {
		return 0, fmt.Errorf("error listing legacy profiles: %w", err)
	}
	migrated := 0
	for _, doc := range docs {
		p := profileFromFields(doc.Ref.ID, doc.Data())
		_, err := s.client.Collection(usersCollection).Doc(p.ID).Create(ctx, profileFields(p))
		if status.Code(err) == codes.AlreadyExists {
			continue
		}
		if err != nil {
			return migrated, fmt.Errorf("error migrating profile %s: %w", p.ID, err)
		}
		migrated++
	}
	return migrated, nil
}

func profileFromFields(uid string, data map[string]interface{}) Models.UserProfile {
	p := Models.UserProfile{ID: uid}
	p.Name, _ = data["name"].(string)
	p.Login, _ = data["login"].(string)
	if role, ok := data["role"].(string); ok {
		p.Role = Models.ParseRole(role)
	}
	if shopID := data["coffeeshop_id"]; shopID != nil {
		id := fmt.Sprint(shopID)
		p.CoffeeshopID = &id
	}
	if loc, ok := geoPointFromField(data["coffeeshop_location"]); ok {
		p.CoffeeshopLocation = &loc
	}
	return p
}

func profileFields(p Models.UserProfile) map[string]interface{} {
	fields := map[string]interface{}{
		"name":          p.Name,
		"role":          string(p.Role),
		"login":         p.Login,
		"coffeeshop_id": nil,
	}
	if p.CoffeeshopID != nil {
		fields["coffeeshop_id"] = *p.CoffeeshopID
	}
	if p.CoffeeshopLocation != nil {
		fields["coffeeshop_location"] = *p.CoffeeshopLocation
	}
	return fields
}

func (s *FirestoreStore) OpenShift(ctx context.Context, shopID, userID string) (Models.Shift, error) {
	docs, err := s.openShifts(shopID, userID).Documents(ctx).GetAll()
	if err != nil {
		return Models.Shift{}, fmt.Errorf("error loading open shift of %s: %w", userID, err)
	}
	if len(docs) == 0 {
		return Models.Shift{}, ErrNotFound
	}
	return shiftFromFields(docs[0].Ref.ID, docs[0].Data()), nil
}

func (s *FirestoreStore) openShifts(shopID, userID string) firestore.Query {
	return s.shop(shopID).Collection(shiftsCollection).
		Where("user_id", "==", userID).
		Where("check_out", "==", nil).
		Limit(1)
}

// CreateShift checks for an open shift and creates the new one in a single
// transaction so two concurrent check-ins cannot both succeed.
func (s *FirestoreStore) CreateShift(ctx context.Context, shopID string, shift *Models.Shift) error {
	coll := s.shop(shopID).Collection(shiftsCollection)
	ref := coll.NewDoc()
	if shift.ID != "" {
		ref = coll.Doc(shift.ID)
	}
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		open, err := tx.Documents(s.openShifts(shopID, shift.UserID)).GetAll()
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return ErrShiftOpen
		}
		return tx.Create(ref, shiftFields(*shift))
	})
	if errors.Is(err, ErrShiftOpen) {
		return ErrShiftOpen
	}
	if err != nil {
		return fmt.Errorf("error creating shift: %w", err)
	}
	shift.ID = ref.ID
	return nil
}

func (s *FirestoreStore) CloseShift(ctx context.Context, shopID string, shift Models.Shift) error {
	ref := s.shop(shopID).Collection(shiftsCollection).Doc(shift.ID)
	_, err := ref.Update(ctx, []firestore.Update{{Path: "check_out", Value: shift.CheckOut}})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("error closing shift %s: %w", shift.ID, err)
	}
	return nil
}

func (s *FirestoreStore) ListShifts(ctx context.Context, shopID, from, to string) ([]Models.Shift, error) {
	docs, err := s.shop(shopID).Collection(shiftsCollection).
		Where("date", ">=", from).
		Where("date", "<=", to).
		OrderBy("date", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing shifts: %w", err)
	}
	shifts := make([]Models.Shift, 0, len(docs))
	for _, doc := range docs {
		shifts = append(shifts, shiftFromFields(doc.Ref.ID, doc.Data()))
	}
	return shifts, nil
}

func shiftFields(sh Models.Shift) map[string]interface{} {
	return map[string]interface{}{
		"user_id":    sh.UserID,
		"date":       sh.Date,
		"location":   sh.Location,
		"distance_m": sh.Distance,
		"check_in":   sh.CheckIn,
		"check_out":  sh.CheckOut,
	}
}

func shiftFromFields(id string, data map[string]interface{}) Models.Shift {
	sh := Models.Shift{ID: id}
	sh.UserID, _ = data["user_id"].(string)
	sh.Date, _ = data["date"].(string)
	if loc, ok := geoPointFromField(data["location"]); ok {
		sh.Location = loc
	}
	sh.Distance, _ = data["distance_m"].(float64)
	sh.CheckIn, _ = data["check_in"].(time.Time)
	if t, ok := data["check_out"].(time.Time); ok {
		sh.CheckOut = &t
	}
	return sh
}
