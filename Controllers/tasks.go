package Controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"Barista/Models"
	"Barista/Store"
)

type TaskController struct {
	Store Store.Store
	Log   *logrus.Logger
}

func NewTaskController(store Store.Store, log *logrus.Logger) *TaskController {
	return &TaskController{Store: store, Log: log}
}

func (c *TaskController) List(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	tasks, err := c.Store.ListTasks(ctx.UserContext(), shopID)
	if err != nil {
		c.Log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot list tasks")
		return internalError(ctx, "Failed to retrieve tasks")
	}
	return ctx.JSON(tasks)
}

func (c *TaskController) Create(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	input, ok, err := c.parseInput(ctx)
	if !ok {
		return err
	}

	task := input.Task("")
	if err := c.Store.SaveTask(ctx.UserContext(), shopID, &task); err != nil {
		c.Log.WithError(err).WithField("coffeeshop_id", shopID).Error("cannot create task")
		return internalError(ctx, "Failed to create task")
	}
	return ctx.Status(fiber.StatusCreated).JSON(task)
}

// Update replaces a task definition. Results already materialized keep the
// snapshot they were created with.
func (c *TaskController) Update(ctx *fiber.Ctx) error {
	shopID, ok := shopScope(ctx)
	if !ok {
		return missingScope(ctx)
	}
	taskID := ctx.Params("id")
	if _, err := c.Store.GetTask(ctx.UserContext(), shopID, taskID); err != nil {
		if errors.Is(err, Store.ErrNotFound) {
			return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"code": "not-found", "error": "Task not found"})
		}
		c.Log.WithError(err).WithField("task_id", taskID).Error("cannot load task")
		return internalError(ctx, "Failed to retrieve task")
	}

	input, ok, err := c.parseInput(ctx)
	if !ok {
		return err
	}
	task := input.Task(taskID)
	if err := c.Store.SaveTask(ctx.UserContext(), shopID, &task); err != nil {
		c.Log.WithError(err).WithField("task_id", taskID).Error("cannot update task")
		return internalError(ctx, "Failed to update task")
	}
	return ctx.JSON(task)
}

func (c *TaskController) parseInput(ctx *fiber.Ctx) (Models.TaskInput, bool, error) {
	var input Models.TaskInput
	if ok, err := parseAndValidate(ctx, &input); !ok {
		return input, false, err
	}
	if !input.ScheduleComplete() {
		return input, false, invalidArgument(ctx, "scheduled_date is required for one_time tasks")
	}
	return input, true, nil
}
