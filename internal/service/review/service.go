package review

import (
	"context"
	"errors"
	"strings"

	"labcommerce/internal/domain"
	"labcommerce/internal/events"

	"github.com/rs/zerolog"
)

type reviewRepo interface {
	Get(ctx context.Context, patientID, itemID string) (*domain.Review, error)
	CreateIfEligible(ctx context.Context, rv domain.Review) (*domain.Review, error)
	ListByItem(ctx context.Context, itemID string) ([]domain.Review, error)
}

type resultRepo interface {
	HasCompleted(ctx context.Context, patientID, itemID string) (bool, error)
}

type publisher interface {
	Publish(ctx context.Context, evt events.Event) error
}

type Service struct {
	reviews   reviewRepo
	results   resultRepo
	publisher publisher
	logger    zerolog.Logger
}

func New(reviews reviewRepo, results resultRepo, pub publisher, logger zerolog.Logger) *Service {
	return &Service{reviews: reviews, results: results, publisher: pub, logger: logger.With().Str("service", "review").Logger()}
}

// Eligibility explains a CheckEligibility answer.
type Eligibility struct {
	ItemID          string `json:"itemId"`
	Eligible        bool   `json:"eligible"`
	HasCompleted    bool   `json:"hasCompletedResult"`
	AlreadyReviewed bool   `json:"alreadyReviewed"`
}

// CheckEligibility is advisory; Submit re-checks at write time.
func (s *Service) CheckEligibility(ctx context.Context, patientID, itemID string) (*Eligibility, error) {
	if patientID == "" {
		return nil, domain.ErrUnauthorized
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, domain.NewValidationError("item id is required", "itemId")
	}
	out := &Eligibility{ItemID: itemID}

	done, err := s.results.HasCompleted(ctx, patientID, itemID)
	if err != nil {
		return nil, err
	}
	out.HasCompleted = done

	_, err = s.reviews.Get(ctx, patientID, itemID)
	switch {
	case err == nil:
		out.AlreadyReviewed = true
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	out.Eligible = out.HasCompleted && !out.AlreadyReviewed
	return out, nil
}

type SubmitInput struct {
	ItemID  string `json:"itemId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Submit stores the review if the patient is eligible at write time.
func (s *Service) Submit(ctx context.Context, patientID string, in SubmitInput) (*domain.Review, error) {
	if patientID == "" {
		return nil, domain.ErrUnauthorized
	}
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return nil, domain.NewValidationError("item id is required", "itemId")
	}
	comment := strings.TrimSpace(in.Comment)
	if err := domain.ValidateReview(in.Rating, comment); err != nil {
		return nil, err
	}

	rv, err := s.reviews.CreateIfEligible(ctx, domain.Review{
		PatientID: patientID,
		ItemID:    itemID,
		Rating:    in.Rating,
		Comment:   comment,
	})
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.Event{Type: events.TypeReviewSubmitted, ItemID: rv.ItemID, OwnerID: rv.PatientID, OccurredAt: rv.CreatedAt}); err != nil {
			s.logger.Warn().Err(err).Str("review_id", rv.ID).Msg("publish event")
		}
	}
	return rv, nil
}

// ListForItem returns the item's reviews with their count and mean rating.
func (s *Service) ListForItem(ctx context.Context, itemID string) (*domain.ReviewSummary, error) {
	reviews, err := s.reviews.ListByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	sum := &domain.ReviewSummary{ItemID: itemID, Count: len(reviews), Reviews: reviews}
	if sum.Reviews == nil {
		sum.Reviews = []domain.Review{}
	}
	if len(reviews) > 0 {
		total := 0
		for _, rv := range reviews {
			total += rv.Rating
		}
		sum.AverageRating = float64(total) / float64(len(reviews))
	}
	return sum, nil
}
