package httpserver

import (
	"net/http"

	"labcommerce/internal/service/review"

	"github.com/gin-gonic/gin"
)

func (h *handlers) reviewEligibility(c *gin.Context) {
	e, err := h.deps.Reviews.CheckEligibility(c.Request.Context(), principal(c).Subject, c.Param("itemId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *handlers) submitReview(c *gin.Context) {
	var in review.SubmitInput
	if err := bindStrict(c, &in); err != nil {
		writeError(c, err)
		return
	}
	rv, err := h.deps.Reviews.Submit(c.Request.Context(), principal(c).Subject, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rv)
}

func (h *handlers) listItemReviews(c *gin.Context) {
	sum, err := h.deps.Reviews.ListForItem(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
