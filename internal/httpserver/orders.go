package httpserver

import (
	"net/http"
	"strconv"

	"labcommerce/internal/domain"
	orderrepo "labcommerce/internal/repository/order"
	"labcommerce/internal/service/order"

	"github.com/gin-gonic/gin"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
)

func (h *handlers) checkout(c *gin.Context) {
	var in order.CheckoutInput
	if err := bindStrict(c, &in); err != nil {
		writeError(c, err)
		return
	}
	if key := c.GetHeader(idempotencyHeader); key != "" && in.IdempotencyKey == "" {
		in.IdempotencyKey = key
	}
	res, err := h.deps.Orders.Checkout(c.Request.Context(), principal(c).Subject, in)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		c.Header(replayedHeader, "true")
		status = http.StatusOK
	}
	c.JSON(status, toOrder(*res.Order))
}

func (h *handlers) listMyOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListMine(c.Request.Context(), principal(c).Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toOrders(orders), "count": len(orders)})
}

func (h *handlers) getOrder(c *gin.Context) {
	o, err := h.deps.Orders.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(*o))
}

func (h *handlers) listAllOrders(c *gin.Context) {
	var filter orderrepo.ListFilter
	if raw := c.Query("status"); raw != "" {
		st, err := domain.ParseOrderStatus(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter.Status = st
	}
	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		writeError(c, err)
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		writeError(c, err)
		return
	}
	orders, err := h.deps.Orders.ListAll(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": toOrders(orders), "count": len(orders)})
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.NewValidationError(name+" must be a non-negative integer", name)
	}
	return n, nil
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	var req statusRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	next, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	o, err := h.deps.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), next)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(*o))
}

type paymentRequest struct {
	PaymentStatus string  `json:"paymentStatus"`
	PaymentMethod *string `json:"paymentMethod,omitempty"`
	TransactionID *string `json:"transactionId,omitempty"`
}

func (h *handlers) updatePayment(c *gin.Context) {
	var req paymentRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	st, err := domain.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		writeError(c, err)
		return
	}
	upd := domain.PaymentUpdate{Status: st, TransactionID: req.TransactionID}
	if req.PaymentMethod != nil {
		m, err := domain.ParsePaymentMethod(*req.PaymentMethod)
		if err != nil {
			writeError(c, err)
			return
		}
		upd.Method = &m
	}
	o, err := h.deps.Orders.UpdatePaymentInfo(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrder(*o))
}
