package main

import (
	"net/http"

	"bitbucket.org/tallerdigital/shopfloor_backend/models"
	"github.com/gin-gonic/gin"
)

func listSupplyItemsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := models.ListSupplyItems(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func getSupplyItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}
		item, err := models.GetSupplyItem(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.SupplyItemView{SupplyItem: *item, Status: item.StockStatus()})
	}
}

func createSupplyItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		if !actor.IsSupervisor() {
			c.JSON(http.StatusForbidden, gin.H{"error": "catalog changes require the supervisor role"})
			return
		}

		var input models.NewSupplyItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, err := models.CreateSupplyItem(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func updateSupplyItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		if !actor.IsSupervisor() {
			c.JSON(http.StatusForbidden, gin.H{"error": "catalog changes require the supervisor role"})
			return
		}
		id, ok := parseIdParam(c)
		if !ok {
			return
		}

		var input models.NewSupplyItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		item, err := models.UpdateSupplyItem(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func lowStockAlertsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := models.GetLowStockAlerts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

func recordMovementHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		if !actor.IsSupervisor() {
			c.JSON(http.StatusForbidden, gin.H{"error": "direct movements require the supervisor role"})
			return
		}

		var input models.NewMovement
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if input.ResponsibleId == nil {
			input.ResponsibleId = &actor.ID
		}

		movement, err := models.RecordMovement(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, movement)
	}
}

func quickConsumptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}

		var input models.QuickConsumption
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		movement, err := models.RegisterQuickConsumption(c.Request.Context(), &input, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, movement)
	}
}

func queryMovementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter models.KardexFilter
		var ok bool

		if filter.SupplyItemId, ok = parseIntQuery(c, "supply_item_id"); !ok {
			return
		}
		if filter.OrderId, ok = parseIntQuery(c, "order_id"); !ok {
			return
		}
		if raw := c.Query("kind"); raw != "" {
			kind, err := models.ParseMovementKind(raw)
			if err != nil {
				respondError(c, err)
				return
			}
			filter.Kind = &kind
		}
		if filter.From, ok = parseDateQuery(c, "from"); !ok {
			return
		}
		if filter.Until, ok = parseDateQuery(c, "until"); !ok {
			return
		}

		rows, err := models.QueryMovements(c.Request.Context(), &filter)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func taskConsumptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseIdParam(c)
		if !ok {
			return
		}
		rows, err := models.GetTaskConsumptions(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
