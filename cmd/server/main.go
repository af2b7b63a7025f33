package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/stripe/stripe-go/v82"

	"valetpartner/internal/api"
	"valetpartner/internal/auth"
	"valetpartner/internal/repository"
	"valetpartner/internal/service"
	"valetpartner/internal/ws"
)

func main() {
	godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	database, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	partnerRepo := repository.NewPartnerRepository(database)
	documentStore := repository.NewDocumentStore(database)
	locationRepo := repository.NewLocationRepository(database)
	requestRepo := repository.NewRequestRepository(database)
	offerRepo := repository.NewOfferRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	earningsRepo := repository.NewEarningsRepository(database)
	supportRepo := repository.NewSupportRepository(database)
	chatRepo := repository.NewChatRepository(database)
	adminRepo := repository.NewAdminRepository(database)

	locks := service.NewPartnerLocks()
	otpSvc := service.NewTwilioOTPService()
	notifier := service.NewOwnerNotifier()
	payouts := service.NewStripePayoutService(os.Getenv("PAYOUT_CURRENCY"))

	authSvc := service.NewAuthService(partnerRepo, otpSvc)
	kycSvc := service.NewKycService(partnerRepo, documentStore)
	partnerSvc := service.NewPartnerService(partnerRepo, sessionRepo, offerRepo, earningsRepo, supportRepo, locks)
	locationSvc := service.NewLocationService(locationRepo)
	dispatchSvc := service.NewDispatchService(requestRepo, offerRepo, partnerRepo, locationRepo, notifier, locks, offerWindow())
	sessionSvc := service.NewSessionService(sessionRepo, partnerRepo, documentStore, otpSvc, notifier, locks)
	earningsSvc := service.NewEarningsService(earningsRepo, partnerRepo, payouts)
	supportSvc := service.NewSupportService(supportRepo)
	adminAuthSvc := service.NewAdminAuthService(adminRepo)

	hub := ws.NewHub()
	go hub.Run()

	jobs := service.NewJobService(sessionRepo, dispatchSvc)
	jobs.Start()
	defer jobs.Stop()

	authHandler := api.NewAuthHandler(authSvc)
	kycHandler := api.NewKycHandler(kycSvc)
	partnerHandler := api.NewPartnerHandler(partnerSvc)
	locationHandler := api.NewLocationHandler(locationSvc)
	dispatchHandler := api.NewDispatchHandler(dispatchSvc)
	sessionHandler := api.NewSessionHandler(sessionSvc)
	earningsHandler := api.NewEarningsHandler(earningsSvc)
	supportHandler := api.NewSupportHandler(supportSvc)
	chatHandler := api.NewChatHandler(sessionSvc, chatRepo, hub)
	adminAuthHandler := api.NewAdminAuthHandler(adminAuthSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	r.HandleFunc("/api/auth/otp", authHandler.RequestOTP).Methods("POST")
	r.HandleFunc("/api/auth/verify", authHandler.VerifyOTP).Methods("POST")
	r.HandleFunc("/api/admin/login", adminAuthHandler.Login).Methods("POST")

	// Partner endpoints (protected)
	partner := r.PathPrefix("/api").Subrouter()
	partner.Use(auth.PartnerAuthMiddleware)
	partner.HandleFunc("/me", partnerHandler.GetProfile).Methods("GET")
	partner.HandleFunc("/me/availability", partnerHandler.SetAvailability).Methods("PUT")
	partner.HandleFunc("/me/dashboard", partnerHandler.Dashboard).Methods("GET")
	partner.HandleFunc("/kyc/documents", kycHandler.SubmitDocuments).Methods("POST")
	partner.HandleFunc("/kyc/status", kycHandler.GetStatus).Methods("GET")
	partner.HandleFunc("/locations", locationHandler.Create).Methods("POST")
	partner.HandleFunc("/locations", locationHandler.List).Methods("GET")
	partner.HandleFunc("/locations/{id}", locationHandler.Get).Methods("GET")
	partner.HandleFunc("/locations/{id}", locationHandler.Update).Methods("PUT")
	partner.HandleFunc("/offers", dispatchHandler.Outstanding).Methods("GET")
	partner.HandleFunc("/offers/{id}/accept", dispatchHandler.Accept).Methods("POST")
	partner.HandleFunc("/offers/{id}/reject", dispatchHandler.Reject).Methods("POST")
	partner.HandleFunc("/sessions", sessionHandler.List).Methods("GET")
	partner.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods("GET")
	partner.HandleFunc("/sessions/{id}/pickup/otp", sessionHandler.RequestPickupOTP).Methods("POST")
	partner.HandleFunc("/sessions/{id}/pickup/confirm", sessionHandler.ConfirmPickup).Methods("POST")
	partner.HandleFunc("/sessions/{id}/return", sessionHandler.RequestReturn).Methods("POST")
	partner.HandleFunc("/sessions/{id}/return/otp", sessionHandler.RequestReturnOTP).Methods("POST")
	partner.HandleFunc("/sessions/{id}/return/confirm", sessionHandler.ConfirmReturn).Methods("POST")
	partner.HandleFunc("/sessions/{id}/cancel", sessionHandler.Cancel).Methods("POST")
	partner.HandleFunc("/sessions/{id}/chat", chatHandler.History).Methods("GET")
	partner.HandleFunc("/sessions/{id}/chat/ws", chatHandler.Connect).Methods("GET")
	partner.HandleFunc("/earnings/summary", earningsHandler.Summary).Methods("GET")
	partner.HandleFunc("/earnings/transactions", earningsHandler.Transactions).Methods("GET")
	partner.HandleFunc("/earnings/payout", earningsHandler.Payout).Methods("POST")
	partner.HandleFunc("/earnings/account", earningsHandler.LinkAccount).Methods("PUT")
	partner.HandleFunc("/support/tickets", supportHandler.CreateTicket).Methods("POST")
	partner.HandleFunc("/support/tickets", supportHandler.ListTickets).Methods("GET")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(auth.AdminAuthMiddleware)
	admin.HandleFunc("/admins", adminAuthHandler.CreateAdmin).Methods("POST")
	admin.HandleFunc("/kyc/{partner_id}/review", kycHandler.Review).Methods("POST")
	admin.HandleFunc("/requests", dispatchHandler.CreateRequest).Methods("POST")
	admin.HandleFunc("/requests/{id}/offer", dispatchHandler.Offer).Methods("POST")
	admin.HandleFunc("/support/tickets/{id}/resolve", supportHandler.ResolveTicket).Methods("POST")

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}

// offerWindow reads OFFER_WINDOW_SECONDS, falling back to the default window.
func offerWindow() time.Duration {
	raw := os.Getenv("OFFER_WINDOW_SECONDS")
	if raw == "" {
		return service.DefaultOfferWindow
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs <= 0 {
		log.Printf("Invalid OFFER_WINDOW_SECONDS %q, using default", raw)
		return service.DefaultOfferWindow
	}
	return time.Duration(secs) * time.Second
}
