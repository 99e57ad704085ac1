package domain

import (
	"fmt"
	"strings"
	"time"
)

type ResultStatus string

const (
	ResultStatusPending    ResultStatus = "pending"
	ResultStatusProcessing ResultStatus = "processing"
	ResultStatusCompleted  ResultStatus = "completed"
)

func ParseResultStatus(s string) (ResultStatus, error) {
	st := ResultStatus(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case ResultStatusPending, ResultStatusProcessing, ResultStatusCompleted:
		return st, nil
	}
	return "", NewValidationError(fmt.Sprintf("unknown result status %q", s), "status")
}

var resultRank = map[ResultStatus]int{
	ResultStatusPending:    0,
	ResultStatusProcessing: 1,
	ResultStatusCompleted:  2,
}

// CanMoveTo allows forward moves only; a completed result is final.
func (s ResultStatus) CanMoveTo(next ResultStatus) bool {
	if s == ResultStatusCompleted {
		return false
	}
	cur, ok := resultRank[s]
	to, nextOK := resultRank[next]
	return ok && nextOK && to >= cur
}

// Attachment describes an uploaded report file; the bytes live elsewhere.
type Attachment struct {
	Name        string `json:"name"`
	URL         string `json:"url"`
	ContentType string `json:"contentType,omitempty"`
}

type Result struct {
	ID             string       `json:"id"`
	OrderID        string       `json:"orderId"`
	OrderItemID    string       `json:"orderItemId"`
	ItemID         string       `json:"itemId"`
	Value          string       `json:"value,omitempty"`
	ReferenceRange string       `json:"referenceRange,omitempty"`
	Unit           string       `json:"unit,omitempty"`
	Status         ResultStatus `json:"status"`
	Reviewed       bool         `json:"reviewed"`
	Attachment     *Attachment  `json:"attachment,omitempty"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// ResultUpdate is the payload of the result-entry workflow. Nil fields are left as is.
type ResultUpdate struct {
	Value          *string
	ReferenceRange *string
	Unit           *string
	Status         *ResultStatus
	Reviewed       *bool
	Attachment     *Attachment
}
