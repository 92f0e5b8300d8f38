package api

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/dilution-tracker/internal/logging"
)

// SetupRoutes configures all API routes. CORS wraps the router so that
// preflight requests are answered before route matching.
func SetupRoutes(handler *Handler, log logrus.FieldLogger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.Middleware(log))

	r.HandleFunc("/", handler.Root).Methods("GET")
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Market data
	r.HandleFunc("/enrich/{ticker}", handler.EnrichTicker).Methods("GET")
	r.HandleFunc("/analyze", handler.Analyze).Methods("GET")

	// Trade journal
	trades := r.PathPrefix("/trades").Subrouter()
	for _, root := range []string{"", "/"} {
		trades.HandleFunc(root, handler.ListTrades).Methods("GET")
		trades.HandleFunc(root, handler.CreateTrade).Methods("POST")
	}
	trades.HandleFunc("/stats/summary", handler.TradeStats).Methods("GET")
	trades.HandleFunc("/{id}", handler.GetTrade).Methods("GET")
	trades.HandleFunc("/{id}", handler.UpdateTrade).Methods("PUT")
	trades.HandleFunc("/{id}", handler.DeleteTrade).Methods("DELETE")
	trades.HandleFunc("/{id}/analysis", handler.TradeAnalysis).Methods("GET")

	// Watchlist
	r.HandleFunc("/watchlist", handler.GetWatchlist).Methods("GET")
	r.HandleFunc("/watchlist", handler.AddToWatchlist).Methods("POST")
	r.HandleFunc("/watchlist/refresh", handler.RefreshWatchlist).Methods("POST")
	r.HandleFunc("/watchlist/{symbol}", handler.RemoveFromWatchlist).Methods("DELETE")

	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})(r)
}
