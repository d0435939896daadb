package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"storefront/internal/middleware"
	"storefront/internal/models"
	"storefront/internal/orders"
)

/* =========================
   REQUEST DTOs
========================= */

type createOrderItemRequest struct {
	ProductID string `json:"productId" binding:"required,mongodb"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type createOrderRequest struct {
	Name         string                   `json:"name" binding:"required"`
	Surname      string                   `json:"surname" binding:"required"`
	Email        string                   `json:"email" binding:"omitempty,email"`
	PersonalID   string                   `json:"personalId" binding:"required,len=11,numeric"`
	Phone        string                   `json:"phone" binding:"required,min=9,numeric"`
	Address      string                   `json:"address" binding:"required"`
	DeliveryType string                   `json:"deliveryType" binding:"required,oneof=tbilisi region"`
	Locale       string                   `json:"locale" binding:"omitempty,oneof=ka en"`
	Items        []createOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

type createPaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

/* =========================
   CREATE ORDER
========================= */

func CreateOrder(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, log, route)

		if err := ensureDBConnection(c.Request.Context(), d.DB); err != nil {
			respondWithError(c, log, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		items := make([]orders.ItemRequest, 0, len(req.Items))
		for _, item := range req.Items {
			items = append(items, orders.ItemRequest{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		order, err := d.Orders.Create(c.Request.Context(), orders.CreateInput{
			Customer: orders.CustomerInfo{
				Name:       req.Name,
				Surname:    req.Surname,
				Email:      req.Email,
				PersonalID: req.PersonalID,
				Phone:      req.Phone,
				Address:    req.Address,
				Locale:     models.NormalizeLocale(req.Locale),
			},
			Zone:   models.DeliveryZone(req.DeliveryType),
			Items:  items,
			UserID: middleware.UserID(c),
		})
		if err != nil {
			respondServiceError(c, log, route, err)
			return
		}

		c.JSON(http.StatusCreated, order)
	}
}

/* =========================
   PAYMENT LINK
========================= */

func CreatePayment(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "POST /orders/payment"
		defer handlePanic(c, log, route)

		if err := ensureDBConnection(c.Request.Context(), d.DB); err != nil {
			respondWithError(c, log, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		order, err := d.Orders.PaymentTarget(c.Request.Context(), req.OrderID)
		if err != nil {
			respondServiceError(c, log, route, err)
			return
		}

		locale := order.Locale
		if raw := c.Query("locale"); raw != "" {
			locale = models.NormalizeLocale(raw)
		}

		link, err := d.Payments.CreatePaymentLink(c.Request.Context(), *order, locale)
		if err != nil {
			d.Metrics.PaymentLink("failure")
			respondServiceError(c, log, route, err)
			return
		}
		d.Metrics.PaymentLink("success")

		c.JSON(http.StatusOK, gin.H{
			"orderId":     order.ID.Hex(),
			"uuid":        order.UUID,
			"checkoutUrl": link.RedirectURL,
		})
	}
}

/* =========================
   GATEWAY CALLBACK
========================= */

// PaymentCallback acknowledges every well-formed callback with 200 so the
// gateway does not retry business outcomes. Only an unreachable database and
// malformed or mis-signed payloads get an error status.
func PaymentCallback(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "POST /orders/callback"
		defer handlePanic(c, log, route)

		if err := ensureDBConnection(c.Request.Context(), d.DB); err != nil {
			d.Metrics.Callback("unavailable")
			respondWithError(c, log, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		fields, err := payloadFields(c)
		if err != nil {
			d.Metrics.Callback("rejected")
			respondWithError(c, log, http.StatusBadRequest, route, "invalid body")
			return
		}

		if details := missingFields(fields, callbackRequiredFields...); len(details) > 0 {
			d.Metrics.Callback("rejected")
			log.Warn("callback rejected", zap.String("route", route), zap.Strings("details", details))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": details})
			return
		}
		orderID, gatewayStatus := fields["order_id"], fields["order_status"]
		amount, err := strconv.ParseInt(fields["amount"], 10, 64)
		if err != nil || amount < 0 {
			d.Metrics.Callback("rejected")
			respondWithError(c, log, http.StatusBadRequest, route, "amount is invalid")
			return
		}

		if d.VerifyCallbackSignature {
			if err := d.Payments.VerifyCallback(fields); err != nil {
				d.Metrics.Callback("rejected")
				respondWithError(c, log, http.StatusBadRequest, route, "invalid signature")
				return
			}
		}

		outcome, err := d.Reconciler.HandleCallback(c.Request.Context(), orders.Callback{
			OrderRef:    orderID,
			Status:      gatewayStatus,
			AmountMinor: amount,
		})
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			d.Metrics.Callback("not_found")
			log.Warn("callback for unknown order", zap.String("route", route), zap.String("order_id", orderID))
		case err != nil:
			d.Metrics.Callback("error")
			log.Error("callback processing failed", zap.String("route", route), zap.String("order_id", orderID), zap.Error(err))
		default:
			d.Metrics.Callback(string(outcome))
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// callbackRequiredFields are the callback fields the reconciler acts on.
// amount is in minor units.
var callbackRequiredFields = []string{"order_id", "order_status", "amount"}

func missingFields(fields map[string]string, names ...string) []string {
	var details []string
	for _, name := range names {
		if strings.TrimSpace(fields[name]) == "" {
			details = append(details, name+" is required")
		}
	}
	return details
}

// payloadFields flattens a JSON or form body into string fields. JSON numbers
// keep their literal text.
func payloadFields(c *gin.Context) (map[string]string, error) {
	fields := map[string]string{}
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return fields, nil
	}

	if c.ContentType() == binding.MIMEJSON {
		var raw map[string]any
		decoder := json.NewDecoder(c.Request.Body)
		decoder.UseNumber()
		if err := decoder.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		for name, value := range raw {
			switch v := value.(type) {
			case nil:
			case string:
				fields[name] = v
			case json.Number:
				fields[name] = v.String()
			case bool:
				fields[name] = strconv.FormatBool(v)
			default:
				encoded, err := json.Marshal(v)
				if err != nil {
					return nil, err
				}
				fields[name] = string(encoded)
			}
		}
		return fields, nil
	}

	if err := c.Request.ParseForm(); err != nil {
		return nil, fmt.Errorf("parse form body: %w", err)
	}
	for name, values := range c.Request.PostForm {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}
	return fields, nil
}

/* =========================
   BROWSER RETURN
========================= */

func PaymentReturn(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "POST /orders/return"
		defer handlePanic(c, log, route)

		fields, err := payloadFields(c)
		if err != nil {
			respondWithError(c, log, http.StatusBadRequest, route, "invalid body")
			return
		}

		orderID := firstNonEmpty(fields["order_id"], fields["ORDER_ID"], c.Query("order_id"), c.Query("ORDER_ID"))
		if orderID == "" {
			respondWithError(c, log, http.StatusBadRequest, route, "order id not found in return payload")
			return
		}

		locale := models.NormalizeLocale(c.Query("locale"))
		target := fmt.Sprintf("%s%s/payment-status?orderId=%s", d.FrontURL, locale, url.QueryEscape(orderID))
		c.Redirect(http.StatusSeeOther, target)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

/* =========================
   ORDER STATUS
========================= */

func OrderStatus(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "GET /orders/status"
		defer handlePanic(c, log, route)

		if err := ensureDBConnection(c.Request.Context(), d.DB); err != nil {
			respondWithError(c, log, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		order, err := d.Orders.Get(c.Request.Context(), c.Query("orderId"))
		if err != nil {
			respondServiceError(c, log, route, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orderId": order.ID.Hex(),
			"uuid":    order.UUID,
			"status":  order.Status,
		})
	}
}

/* =========================
   MY ORDERS
========================= */

func MyOrders(d Deps) gin.HandlerFunc {
	log := d.log()
	return func(c *gin.Context) {
		const route = "GET /orders/my"
		defer handlePanic(c, log, route)

		userID := middleware.UserID(c)
		if userID == nil {
			respondWithError(c, log, http.StatusUnauthorized, route, "unauthorized")
			return
		}

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
			UserID: userID,
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

func Health(d Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ensureDBConnection(c.Request.Context(), d.DB); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
