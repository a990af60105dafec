package task

import (
	"errors"
	"net/http"
	"strconv"
	"task_list/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type TaskController struct {
	service TaskServiceInterface
}

type CreateTaskRequest struct {
	Text      string `json:"text" binding:"required"`
	Completed bool   `json:"completed"`
}

// UpdateTaskRequest replaces both mutable fields, so both are required.
type UpdateTaskRequest struct {
	Text      string `json:"text" binding:"required"`
	Completed *bool  `json:"completed" binding:"required"`
}

func NewTaskController(service TaskServiceInterface) *TaskController {
	return &TaskController{
		service: service,
	}
}

// ListTasks returns the authenticated user's tasks.
func (tc *TaskController) ListTasks(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	tasks, err := tc.service.ListTasks(c.Request.Context(), userID)
	if err != nil {
		tc.fail(c, err, "Failed to get tasks")
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// CreateTask handles task creation
func (tc *TaskController) CreateTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := tc.service.CreateTask(c.Request.Context(), userID, req.Text, req.Completed)
	if err != nil {
		tc.fail(c, err, "Failed to create task")
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask replaces text and completed of one of the user's tasks.
func (tc *TaskController) UpdateTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := tc.service.UpdateTask(c.Request.Context(), userID, taskID, req.Text, *req.Completed)
	if err != nil {
		tc.fail(c, err, "Failed to update task")
		return
	}

	c.JSON(http.StatusOK, task)
}

// DeleteTask removes one of the user's tasks and returns it.
func (tc *TaskController) DeleteTask(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	task, err := tc.service.DeleteTask(c.Request.Context(), userID, taskID)
	if err != nil {
		tc.fail(c, err, "Failed to delete task")
		return
	}

	c.JSON(http.StatusOK, task)
}

func (tc *TaskController) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	default:
		logrus.WithError(err).Error(message)
		c.JSON(http.StatusInternalServerError, gin.H{"error": message})
	}
}

func requireUser(c *gin.Context) (int, bool) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	return userID, true
}

// taskIDParam parses the :id segment. Ids that are numeric but can never
// name a stored task (non-positive or beyond the INTEGER column) get the
// same 404 as a task that does not exist.
func taskIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if errors.Is(err, strconv.ErrRange) || (err == nil && id <= 0) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return 0, false
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return 0, false
	}
	return int(id), true
}
