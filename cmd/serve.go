package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/reorder-cli/internal/model"
	"github.com/sells-group/reorder-cli/internal/predict"
	"github.com/sells-group/reorder-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the reorder prediction HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		limiter := rate.NewLimiter(rate.Limit(cfg.Server.RequestsPerSec), cfg.Server.RequestBurst)
		router := buildRouter(st, newEngine(st), limiter)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		go shutdownOnDone(ctx, srv, time.Duration(cfg.Server.ShutdownTimeSecs)*time.Second)

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// shutdownOnDone waits for ctx to be cancelled, then drains the server
// within the grace period. In-flight requests that outlive the grace
// period surface as a shutdown error, which is logged rather than lost.
func shutdownOnDone(ctx context.Context, srv *http.Server, grace time.Duration) {
	<-ctx.Done()
	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("server shutdown", zap.Error(err))
	}
}

// buildRouter assembles the HTTP API. A nil limiter disables rate
// limiting, which keeps handler tests independent of the bucket state.
func buildRouter(st store.Store, engine *predict.Engine, limiter *rate.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	if limiter != nil {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				if !limiter.Allow() {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
					return
				}
				next.ServeHTTP(w, req)
			})
		})
	}

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/customers/{id}/predictions", func(w http.ResponseWriter, req *http.Request) {
		customerID, err := strconv.Atoi(chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid customer id")
			return
		}
		today, err := resolveDate(req.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		pred, err := engine.Predict(req.Context(), customerID, today)
		if err != nil {
			if errors.Is(err, predict.ErrNoHistory) {
				writeError(w, http.StatusNotFound, "no purchase history for customer")
				return
			}
			zap.L().Error("prediction failed", zap.Int("customer_id", customerID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "prediction failed")
			return
		}
		writeJSON(w, http.StatusOK, pred)
	})

	r.Post("/customers/{id}/nudges/{productID}/accept", func(w http.ResponseWriter, req *http.Request) {
		customerID, err := strconv.Atoi(chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid customer id")
			return
		}
		productID, err := strconv.Atoi(chi.URLParam(req, "productID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid product id")
			return
		}

		var body struct {
			Quantity int `json:"quantity"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		orderReq, err := engine.AcceptNudge(req.Context(), customerID, productID, body.Quantity)
		if err != nil {
			var verr *predict.ValidationError
			switch {
			case errors.As(err, &verr):
				writeError(w, http.StatusUnprocessableEntity, verr.Error())
			case errors.Is(err, store.ErrNotFound):
				writeError(w, http.StatusNotFound, "product not found")
			default:
				zap.L().Error("nudge accept failed", zap.Int("customer_id", customerID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "nudge accept failed")
			}
			return
		}

		order, err := st.PlaceOrder(req.Context(), orderReq.CustomerID, []model.OrderItem{
			{ProductID: orderReq.ProductID, Quantity: orderReq.Quantity},
		})
		if err != nil {
			if errors.Is(err, store.ErrInsufficientStock) {
				writeError(w, http.StatusConflict, "insufficient stock; nudge remains pending")
				return
			}
			zap.L().Error("order placement failed", zap.Int("customer_id", customerID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "order placement failed")
			return
		}
		writeJSON(w, http.StatusCreated, order)
	})

	r.Post("/orders", func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			CustomerID int               `json:"customer_id"`
			Items      []model.OrderItem `json:"items"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if body.CustomerID <= 0 || len(body.Items) == 0 {
			writeError(w, http.StatusBadRequest, "customer_id and items are required")
			return
		}
		for _, it := range body.Items {
			if it.Quantity <= 0 {
				writeError(w, http.StatusBadRequest, "item quantity must be positive")
				return
			}
		}

		order, err := st.PlaceOrder(req.Context(), body.CustomerID, body.Items)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrInsufficientStock):
				writeError(w, http.StatusConflict, "insufficient stock")
			case errors.Is(err, store.ErrNotFound):
				writeError(w, http.StatusNotFound, "product not found")
			default:
				zap.L().Error("order placement failed", zap.Int("customer_id", body.CustomerID), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "order placement failed")
			}
			return
		}
		writeJSON(w, http.StatusCreated, order)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
