package httpserver

import (
	"net/http"

	"labcommerce/internal/domain"

	"github.com/gin-gonic/gin"
)

func (h *handlers) listOrderResults(c *gin.Context) {
	results, err := h.deps.Results.ListForOrder(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

type resultRequest struct {
	Value          *string            `json:"value,omitempty"`
	ReferenceRange *string            `json:"referenceRange,omitempty"`
	Unit           *string            `json:"unit,omitempty"`
	Status         *string            `json:"status,omitempty"`
	Reviewed       *bool              `json:"reviewed,omitempty"`
	Attachment     *domain.Attachment `json:"attachment,omitempty"`
}

func (h *handlers) updateResult(c *gin.Context) {
	var req resultRequest
	if err := bindStrict(c, &req); err != nil {
		writeError(c, err)
		return
	}
	upd := domain.ResultUpdate{
		Value:          req.Value,
		ReferenceRange: req.ReferenceRange,
		Unit:           req.Unit,
		Reviewed:       req.Reviewed,
		Attachment:     req.Attachment,
	}
	if req.Status != nil {
		st, err := domain.ParseResultStatus(*req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		upd.Status = &st
	}
	res, err := h.deps.Results.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
