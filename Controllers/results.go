package Controllers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"Barista/Models"
	"Barista/Store"
	"Barista/middleware"
)

const (
	photoMaxSide = 1600
	exportSheet  = "Results"
)

type TaskResultController struct {
	Store     Store.Store
	Location  *time.Location
	UploadDir string
	Log       *logrus.Logger
	now       func() time.Time
}

func NewTaskResultController(store Store.Store, loc *time.Location, uploadDir string, log *logrus.Logger) *TaskResultController {
	return &TaskResultController{Store: store, Location: loc, UploadDir: uploadDir, Log: log, now: time.Now}
}

// List returns the results of one day, today by default.
func (c *TaskResultController) List(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	date := ctx.Query("date", Models.DateIn(c.now(), c.Location))
	if _, err := Models.ParseDate(date, c.Location); err != nil {
		return invalidArgument(ctx, err.Error())
	}

	results, err := c.Store.ListResults(ctx.UserContext(), shopID, date, date)
	if err != nil {
		c.Log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot list results")
		return internalError(ctx, "Failed to retrieve task results")
	}
	return ctx.JSON(results)
}

// UpdateStatus moves a result through the review workflow.
func (c *TaskResultController) UpdateStatus(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	var req Models.StatusUpdateRequest
	if ok, err := parseAndValidate(ctx, &req); !ok {
		return err
	}

	result, err := c.loadResult(ctx, shopID)
	if err != nil || result == nil {
		return err
	}

	profile, _ := middleware.CurrentProfile(ctx)
	next := Models.TaskResultStatus(req.Status)
	if err := result.ManualTransition(profile.Role, next); err != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"code": "failed-precondition", "error": err.Error()})
	}

	result.Status = next
	switch next {
	case Models.StatusDone:
		finished := c.now()
		uid := profile.ID
		result.ActualFinishTime = &finished
		result.UserID = &uid
	case Models.StatusApproved, Models.StatusRejected:
		if req.ReviewComment != "" {
			comment := req.ReviewComment
			result.ReviewComment = &comment
		}
	case Models.StatusNotDone:
		result.ActualFinishTime = nil
	}

	return c.save(ctx, shopID, *result)
}

// UploadPhoto stores the photo evidence of a result and sends it to review.
func (c *TaskResultController) UploadPhoto(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	result, err := c.loadResult(ctx, shopID)
	if err != nil || result == nil {
		return err
	}

	profile, _ := middleware.CurrentProfile(ctx)
	if err := result.Transition(profile.Role, Models.StatusInReview); err != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"code": "failed-precondition", "error": err.Error()})
	}

	header, err := ctx.FormFile("photo")
	if err != nil {
		return invalidArgument(ctx, "photo file is required")
	}
	file, err := header.Open()
	if err != nil {
		return invalidArgument(ctx, "cannot read photo")
	}
	defer file.Close()

	img, err := imaging.Decode(file, imaging.AutoOrientation(true))
	if err != nil {
		return invalidArgument(ctx, "photo must be a JPEG, PNG, GIF, BMP or TIFF image")
	}
	img = imaging.Fit(img, photoMaxSide, photoMaxSide, imaging.Lanczos)

	name := filepath.Base(result.ID) + ".jpg"
	dir := filepath.Join(c.UploadDir, filepath.Base(shopID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.Log.WithError(err).Error("cannot create upload directory")
		return internalError(ctx, "Failed to store photo")
	}
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(85)); err != nil {
		c.Log.WithError(err).Error("cannot save photo")
		return internalError(ctx, "Failed to store photo")
	}

	url := fmt.Sprintf("/uploads/%s/%s", filepath.Base(shopID), name)
	finished := c.now()
	uid := profile.ID
	result.PhotoURL = &url
	result.UserID = &uid
	result.ActualFinishTime = &finished
	result.Status = Models.StatusInReview

	return c.save(ctx, shopID, *result)
}

// Export writes the results between from and to (inclusive) as xlsx.
func (c *TaskResultController) Export(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	today := Models.DateIn(c.now(), c.Location)
	from, to := ctx.Query("from", today), ctx.Query("to", today)
	for _, d := range []string{from, to} {
		if _, err := Models.ParseDate(d, c.Location); err != nil {
			return invalidArgument(ctx, err.Error())
		}
	}
	if from > to {
		return invalidArgument(ctx, "from must not be after to")
	}

	results, err := c.Store.ListResults(ctx.UserContext(), shopID, from, to)
	if err != nil {
		c.Log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot list results for export")
		return internalError(ctx, "Failed to retrieve task results")
	}

	data, err := ResultsWorkbook(results, c.Location)
	if err != nil {
		c.Log.WithError(err).Error("cannot build workbook")
		return internalError(ctx, "Failed to build export")
	}

	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="task-results-%s-%s.xlsx"`, from, to))
	return ctx.Send(data)
}

// ResultsWorkbook renders results as a single sheet workbook.
func ResultsWorkbook(results []Models.TaskResult, loc *time.Location) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}
	header := []interface{}{"Date", "Task", "Type", "Status", "Expected", "Finished", "Photo", "Comment"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, r := range results {
		finished := ""
		if r.ActualFinishTime != nil {
			finished = r.ActualFinishTime.In(loc).Format("15:04")
		}
		row := []interface{}{
			r.Date,
			r.Title,
			string(r.Type),
			string(r.Status),
			deref(r.ExpectedFinishTime),
			finished,
			deref(r.PhotoURL),
			deref(r.ReviewComment),
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// loadResult writes the 404/500 response itself. A nil result means the
// response is done and the returned error is that of the write.
func (c *TaskResultController) loadResult(ctx *fiber.Ctx, shopID string) (*Models.TaskResult, error) {
	resultID := ctx.Params("id")
	result, err := c.Store.GetResult(ctx.UserContext(), shopID, resultID)
	if errors.Is(err, Store.ErrNotFound) {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"code": "not-found", "error": "Task result not found"})
	}
	if err != nil {
		c.Log.WithError(err).WithField("result_id", resultID).Error("cannot load result")
		return nil, internalError(ctx, "Failed to retrieve task result")
	}
	return &result, nil
}

func (c *TaskResultController) save(ctx *fiber.Ctx, shopID string, result Models.TaskResult) error {
	if err := c.Store.UpdateResult(ctx.UserContext(), shopID, result); err != nil {
		c.Log.WithError(err).WithField("result_id", result.ID).Error("cannot update result")
		return internalError(ctx, "Failed to update task result")
	}
	return ctx.JSON(result)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
