package main

import (
	"net/http"

	"bitbucket.org/tallerdigital/shopfloor_backend/models"
	"github.com/gin-gonic/gin"
)

func reportIncidentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}

		var input models.NewIncident
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		incident, err := models.ReportIncident(c.Request.Context(), &input, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, incident)
	}
}

func listIncidentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.IncidentFilter
		var ok bool

		if raw := c.Query("state"); raw != "" {
			state, err := models.ParseIncidentState(raw)
			if err != nil {
				respondError(c, err)
				return
			}
			filter.State = &state
		}
		if raw := c.Query("urgency"); raw != "" {
			urgency, err := models.ParseIncidentUrgency(raw)
			if err != nil {
				respondError(c, err)
				return
			}
			filter.Urgency = &urgency
		}
		if filter.TaskId, ok = parseIntQuery(c, "task_id"); !ok {
			return
		}

		rows, err := models.ListIncidents(c.Request.Context(), &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

type advanceIncidentRequest struct {
	State string `json:"state" binding:"required"`
}

func advanceIncidentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		var req advanceIncidentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state is required"})
			return
		}

		incident, err := models.AdvanceIncident(c.Request.Context(), id, req.State, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, incident)
	}
}

func taskIncidentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}
		rows, err := models.GetTaskIncidents(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
