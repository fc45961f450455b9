package main

import (
	"net/http"

	"bitbucket.org/tallerdigital/shopfloor_backend/models"
	"github.com/gin-gonic/gin"
)

func createOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		if !actor.IsSupervisor() {
			c.JSON(http.StatusForbidden, gin.H{"error": "order creation requires the supervisor role"})
			return
		}

		var input models.NewOrder
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := models.CreateOrder(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}

func listOrdersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.OrderFilter
		var ok bool

		if raw := c.Query("state"); raw != "" {
			state, err := models.ParseOrderState(raw)
			if err != nil {
				respondError(c, err)
				return
			}
			filter.State = &state
		}
		if raw := c.Query("area"); raw != "" {
			filter.Area = &raw
		}
		if raw := c.Query("priority"); raw != "" {
			filter.Priority = &raw
		}
		if filter.From, ok = parseDateQuery(c, "from"); !ok {
			return
		}
		if filter.Until, ok = parseDateQuery(c, "until"); !ok {
			return
		}

		rows, err := models.ListOrders(c.Request.Context(), &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func getOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}
		order, err := models.GetOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func editOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		if !actor.IsSupervisor() {
			c.JSON(http.StatusForbidden, gin.H{"error": "order edits require the supervisor role"})
			return
		}
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		var input models.EditOrderInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		order, err := models.EditOrder(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

type updateOrderStatusRequest struct {
	State string `json:"state" binding:"required"`
}

func updateOrderStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "state is required"})
			return
		}

		order, err := models.UpdateOrderStatus(c.Request.Context(), id, req.State, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, order)
	}
}

func duplicateOrderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		if !actor.IsSupervisor() {
			c.JSON(http.StatusForbidden, gin.H{"error": "order duplication requires the supervisor role"})
			return
		}
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		order, err := models.DuplicateOrder(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, order)
	}
}
