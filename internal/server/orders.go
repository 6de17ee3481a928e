package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	orderdomain "github.com/railzwaylabs/orderpay/internal/order/domain"
)

type advanceFulfillmentRequest struct {
	Status orderdomain.Status `json:"status" binding:"required"`
}

// CreateOrder
// POST /orders
func (s *Server) CreateOrder(c *gin.Context) {
	userID := userIDFromContext(c)
	if userID == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req orderdomain.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	res, err := s.orderSvc.CreateOrder(c.Request.Context(), userID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"orderId":     res.OrderID,
		"orderNumber": res.OrderNumber,
	})
}

// GetOrder returns the order only to the user who placed it.
// GET /orders/:id
func (s *Server) GetOrder(c *gin.Context) {
	order, err := s.orderSvc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if order.UserID != userIDFromContext(c) {
		AbortWithError(c, orderdomain.ErrOrderNotFound)
		return
	}

	view, err := orderdomain.ToResponse(order)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": view})
}

// AdvanceFulfillment is reserved for fulfillment operators.
// POST /orders/:id/fulfillment
func (s *Server) AdvanceFulfillment(c *gin.Context) {
	var req advanceFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	order, err := s.orderSvc.AdvanceFulfillment(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	view, err := orderdomain.ToResponse(order)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": view})
}
