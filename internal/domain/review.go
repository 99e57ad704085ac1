package domain

import (
	"time"
	"unicode/utf8"
)

// MaxReviewCommentLength bounds review comments, in runes.
const MaxReviewCommentLength = 2000

type Review struct {
	ID        string    `json:"id"`
	PatientID string    `json:"patientId"`
	ItemID    string    `json:"itemId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReviewSummary aggregates the reviews of one catalog item.
type ReviewSummary struct {
	ItemID        string   `json:"itemId"`
	Count         int      `json:"count"`
	AverageRating float64  `json:"averageRating"`
	Reviews       []Review `json:"reviews"`
}

// ValidateReview checks rating bounds and comment length.
func ValidateReview(rating int, comment string) error {
	var fields []string
	if rating < 1 || rating > 5 {
		fields = append(fields, "rating")
	}
	if utf8.RuneCountInString(comment) > MaxReviewCommentLength {
		fields = append(fields, "comment")
	}
	if len(fields) > 0 {
		return NewValidationError("rating must be 1-5 and comment at most 2000 characters", fields...)
	}
	return nil
}
