package activity

import (
	"context"
	"net/http"
	"strconv"
	"task_list/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Lister is the read side of the activity store.
type Lister interface {
	ListByUser(ctx context.Context, userID, limit int) ([]*Entry, error)
}

type ActivityController struct {
	entries Lister
}

func NewActivityController(entries Lister) *ActivityController {
	return &ActivityController{entries: entries}
}

// ListActivity returns the authenticated user's activity, newest first.
// An optional ?limit= bounds the result to at most DefaultListLimit entries.
func (ac *ActivityController) ListActivity(c *gin.Context) {
	userID, err := auth.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	limit := DefaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		if n < limit {
			limit = n
		}
	}

	entries, err := ac.entries.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to list activity")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get activity"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
