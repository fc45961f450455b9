package main

import (
	"net/http"

	"bitbucket.org/tallerdigital/shopfloor_backend/models"
	"github.com/gin-gonic/gin"
)

func listTasksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.TaskFilter
		var ok bool

		if filter.AssigneeId, ok = parseIntQuery(c, "assignee_id"); !ok {
			return
		}
		if filter.OrderId, ok = parseIntQuery(c, "order_id"); !ok {
			return
		}
		if raw := c.Query("state"); raw != "" {
			state, err := models.ParseTaskState(raw)
			if err != nil {
				respondError(c, err)
				return
			}
			filter.State = &state
		}

		rows, err := models.ListTasks(c.Request.Context(), &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func getTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}
		task, err := models.GetTask(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

// timerActionHandler wraps the three timer verbs, which share the same
// request/response shape.
func timerActionHandler(action func(c *gin.Context, id int, actor models.Actor) (*models.Task, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		task, err := action(c, id, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}

func startTaskHandler() gin.HandlerFunc {
	return timerActionHandler(func(c *gin.Context, id int, actor models.Actor) (*models.Task, error) {
		return models.StartTask(c.Request.Context(), id, actor)
	})
}

func pauseTaskHandler() gin.HandlerFunc {
	return timerActionHandler(func(c *gin.Context, id int, actor models.Actor) (*models.Task, error) {
		return models.PauseTask(c.Request.Context(), id, actor)
	})
}

func finishTaskHandler() gin.HandlerFunc {
	return timerActionHandler(func(c *gin.Context, id int, actor models.Actor) (*models.Task, error) {
		return models.FinishTask(c.Request.Context(), id, actor)
	})
}

type setTaskStateRequest struct {
	State string `json:"state" binding:"required"`
}

func setTaskStateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		var req setTaskStateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state is required"})
			return
		}

		task, err := models.SetTaskState(c.Request.Context(), id, req.State, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, task)
	}
}
