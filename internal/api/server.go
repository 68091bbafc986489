package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kjannette/trahn-agents/internal/registry"
	"github.com/kjannette/trahn-agents/internal/repository"
	"github.com/kjannette/trahn-agents/internal/scheduler"
	"github.com/kjannette/trahn-agents/internal/settlement"
)

const maxQueryLimit = 1000

// Deps bundles the collaborators the HTTP layer drives. The API is a
// thin surface: every handler delegates to one of these.
type Deps struct {
	Registry *registry.Registry
	Settle   *settlement.Service
	Scan     *scheduler.ScanScheduler
}

type Server struct {
	pool       *pgxpool.Pool
	agentRepo  *repository.AgentRepo
	tradeRepo  *repository.TradeRepo
	feeRepo    *repository.FeeRepo
	oppRepo    *repository.OpportunityRepo
	deps       Deps
	httpServer *http.Server
	apiKey     string
}

func NewServer(pool *pgxpool.Pool, deps Deps, port int, apiKey, corsOrigin string) *Server {
	s := &Server{
		pool:      pool,
		agentRepo: repository.NewAgentRepo(pool),
		tradeRepo: repository.NewTradeRepo(pool),
		feeRepo:   repository.NewFeeRepo(pool),
		oppRepo:   repository.NewOpportunityRepo(pool),
		deps:      deps,
		apiKey:    apiKey,
	}

	mux := http.NewServeMux()

	// Agent routes
	mux.HandleFunc("POST /v1/agents/{id}/start", s.handleAgentStart)
	mux.HandleFunc("POST /v1/agents/{id}/stop", s.handleAgentStop)
	mux.HandleFunc("GET /v1/agents/{id}/status", s.handleAgentStatus)
	mux.HandleFunc("GET /v1/agents/{id}/opportunities", s.handleAgentOpportunities)

	// Trade routes
	mux.HandleFunc("POST /v1/trades", s.handleTradeCreate)
	mux.HandleFunc("GET /v1/trades", s.handleTradeList)
	mux.HandleFunc("GET /v1/trades/stats", s.handleTradeStats)
	mux.HandleFunc("POST /v1/trades/{id}/cancel", s.handleTradeCancel)

	// Fee routes
	mux.HandleFunc("GET /v1/fees", s.handleFeeList)
	mux.HandleFunc("POST /v1/fees/{id}/transfer", s.handleFeeTransfer)
	mux.HandleFunc("POST /v1/fees/transfer-batch", s.handleFeeBatchTransfer)
	mux.HandleFunc("GET /v1/users/{id}/fees", s.handleUserFees)
	mux.HandleFunc("GET /v1/users/{id}/fees/stats", s.handleUserFeeStats)

	// Scan route
	mux.HandleFunc("POST /v1/scan", s.handleScanNow)

	// Health check (no auth required)
	mux.HandleFunc("GET /health", s.handleHealth)

	handler := s.authMiddleware(corsMiddleware(mux, corsOrigin))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	fmt.Printf("[API] REST API server started on http://localhost%s\n", s.httpServer.Addr)
	fmt.Printf("[API] Health check: http://localhost%s/health\n", s.httpServer.Addr)
	if s.apiKey != "" {
		fmt.Println("[API] Authentication: enabled (Bearer token)")
	} else {
		fmt.Println("[API] Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- validation helpers ---

func parseID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
