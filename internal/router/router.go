package router

import (
	"net/http"

	"github.com/senyabanana/tender-engine/internal/auth"
	"github.com/senyabanana/tender-engine/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers - набор HTTP-обработчиков приложения.
type Handlers struct {
	Tender       *handlers.TenderHandler
	Bid          *handlers.BidHandler
	Payment      *handlers.PaymentHandler
	Verification *handlers.VerificationHandler
	Contractor   *handlers.ContractorHandler
}

// InitRoutes собирает маршруты. Все маршруты, кроме /api/ping, требуют Bearer токен.
func InitRoutes(h Handlers, jwtSecret []byte, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/ping", handlers.PingHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(jwtSecret))

		r.Route("/tenders", func(r chi.Router) {
			r.Get("/", h.Tender.GetTenders)
			r.Post("/", h.Tender.CreateTender)
			r.Get("/{tenderId}", h.Tender.GetTender)
			r.Put("/{tenderId}/status", h.Tender.UpdateTenderStatus)
			r.Post("/{tenderId}/award", h.Tender.AwardTender)
			r.Post("/{tenderId}/bids", h.Bid.CreateBid)
			r.Get("/{tenderId}/bids", h.Bid.GetTenderBids)
			r.Post("/{tenderId}/payment", h.Payment.ProcessPayment)
			r.Delete("/{tenderId}/payment", h.Payment.ClearPaymentHistory)
		})

		r.Get("/payments", h.Payment.GetPayments)

		r.Route("/contractors", func(r chi.Router) {
			r.Get("/", h.Contractor.GetContractors)
			r.Get("/overview", h.Contractor.GetVerificationOverview)
			r.Get("/{contractorId}", h.Contractor.GetContractor)
			r.Put("/{contractorId}", h.Contractor.UpdateContractor)
			r.Delete("/{contractorId}", h.Contractor.DeleteContractor)
			r.Get("/{contractorId}/bids", h.Bid.GetContractorBids)
			r.Get("/{contractorId}/payments", h.Payment.GetContractorPayments)
			r.Put("/{contractorId}/verification-status", h.Verification.SetVerificationStatus)
			r.Post("/{contractorId}/rating", h.Contractor.RateContractor)
		})

		r.Route("/verification/requests", func(r chi.Router) {
			r.Post("/", h.Verification.SubmitRequest)
			r.Get("/", h.Verification.GetRequests)
			r.Get("/mine", h.Verification.GetMyRequest)
			r.Post("/{requestId}/claim", h.Verification.StartReview)
			r.Put("/{requestId}/review", h.Verification.ReviewRequest)
		})
	})

	return r
}
