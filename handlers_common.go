package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/tallerdigital/shopfloor_backend/middlewares"
	"bitbucket.org/tallerdigital/shopfloor_backend/models"
	"bitbucket.org/tallerdigital/shopfloor_backend/utils"
	"github.com/gin-gonic/gin"
)

// respondError translates the domain error taxonomy into HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, utils.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, utils.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, utils.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, utils.ErrIllegalTransition),
		errors.Is(err, utils.ErrInsufficientStock):
		status = http.StatusConflict
	case errors.Is(err, utils.ErrBusy):
		status = http.StatusLocked
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// requireActor rebuilds the principal from the request context; RequireAuth
// guarantees the claims are present on /api routes.
func requireActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middlewares.ActorFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return actor, ok
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter.
func parseDateQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name + ", expected YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}

func parseIntQuery(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return nil, false
	}
	return &n, true
}
