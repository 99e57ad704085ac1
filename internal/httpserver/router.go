package httpserver

import (
	"context"
	"time"

	"labcommerce/internal/auth"
	"labcommerce/internal/domain"
	orderrepo "labcommerce/internal/repository/order"
	"labcommerce/internal/service/order"
	"labcommerce/internal/service/review"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type catalogService interface {
	List(ctx context.Context, category string) ([]domain.CatalogItem, error)
	Categories(ctx context.Context) ([]string, error)
	Get(ctx context.Context, id string) (*domain.CatalogItem, error)
}

type orderService interface {
	Checkout(ctx context.Context, ownerID string, in order.CheckoutInput) (*order.CheckoutResult, error)
	Get(ctx context.Context, p domain.Principal, id string) (*domain.Order, error)
	ListMine(ctx context.Context, ownerID string) ([]domain.Order, error)
	ListAll(ctx context.Context, filter orderrepo.ListFilter) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id string, next domain.OrderStatus) (*domain.Order, error)
	UpdatePaymentInfo(ctx context.Context, id string, upd domain.PaymentUpdate) (*domain.Order, error)
}

type resultService interface {
	ListForOrder(ctx context.Context, p domain.Principal, orderID string) ([]domain.Result, error)
	Update(ctx context.Context, id string, upd domain.ResultUpdate) (*domain.Result, error)
}

type reviewService interface {
	CheckEligibility(ctx context.Context, patientID, itemID string) (*review.Eligibility, error)
	Submit(ctx context.Context, patientID string, in review.SubmitInput) (*domain.Review, error)
	ListForItem(ctx context.Context, itemID string) (*domain.ReviewSummary, error)
}

// Deps are the services behind the HTTP API.
type Deps struct {
	Catalog catalogService
	Orders  orderService
	Results resultService
	Reviews reviewService
}

// buildRouter wires routes for the API.
func buildRouter(logger zerolog.Logger, db Pinger, deps Deps, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestID(), requestLogger(logger), recovery(logger))

	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
			ExposeHeaders:    []string{requestIDHeader, replayedHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps}

	router.GET("/catalog", h.listCatalog)
	router.GET("/catalog/categories", h.listCategories)
	router.GET("/catalog/:id", h.getCatalogItem)
	router.GET("/catalog/:id/reviews", h.listItemReviews)

	authed := router.Group("/", auth.Middleware(opts.Auth, logger))
	authed.POST("/orders", h.checkout)
	authed.GET("/orders", h.listMyOrders)
	authed.GET("/orders/:id", h.getOrder)
	authed.GET("/orders/:id/results", h.listOrderResults)
	authed.GET("/reviews/eligibility/:itemId", h.reviewEligibility)
	authed.POST("/reviews", h.submitReview)

	admin := authed.Group("/admin")
	admin.GET("/orders", auth.RequireRole(domain.RoleAdmin), h.listAllOrders)
	admin.PATCH("/orders/:id/status", auth.RequireRole(domain.RoleAdmin), h.updateOrderStatus)
	admin.PATCH("/orders/:id/payment", auth.RequireRole(domain.RoleAdmin), h.updatePayment)
	admin.PATCH("/results/:id", auth.RequireRole(domain.RoleDoctor), h.updateResult)

	return router
}

type handlers struct {
	deps Deps
}

func principal(c *gin.Context) domain.Principal {
	return auth.PrincipalFromContext(c.Request.Context())
}
