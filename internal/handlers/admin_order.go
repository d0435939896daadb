package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/internal/models"
	"storefront/internal/orders"
)

type updateOrderStatusRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Status  string `json:"status" binding:"required,oneof=pending paid failed shipped delivered cancelled"`
}

// ListOrders pages through all orders. uuid also accepts the legacy finaId
// and email the legacy userEmail query names.
func ListOrders(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders"
		defer handlePanic(c, log, route)

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, log, http.StatusBadRequest, route, "invalid pagination parameters")
			return
		}

		if err := ensureDBConnection(c.Request.Context(), d.DB); err != nil {
			respondWithError(c, log, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		result, err := d.Orders.List(c.Request.Context(), orders.ListFilter{
			Status: models.OrderStatus(c.Query("status")),
			UUID:   firstNonEmpty(c.Query("uuid"), c.Query("finaId")),
			Email:  firstNonEmpty(c.Query("email"), c.Query("userEmail")),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			respondServiceError(c, log, route, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func GetOrder(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "GET /admin/api/orders/:id"
		defer handlePanic(c, log, route)

		if err := ensureDBConnection(c.Request.Context(), d.DB); err != nil {
			respondWithError(c, log, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		order, err := d.Orders.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondServiceError(c, log, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

// UpdateOrderStatus replaces order deletion: orders are retained and moved to
// cancelled instead.
func UpdateOrderStatus(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "POST /admin/api/orders/status"
		defer handlePanic(c, log, route)

		if err := ensureDBConnection(c.Request.Context(), d.DB); err != nil {
			respondWithError(c, log, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		order, err := d.Orders.TransitionStatus(c.Request.Context(), req.OrderID, models.OrderStatus(req.Status))
		if err != nil {
			respondServiceError(c, log, route, err)
			return
		}

		c.JSON(http.StatusOK, order)
	}
}
