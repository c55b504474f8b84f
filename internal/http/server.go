// Package http exposes the JSON API and the embedded static frontend.
package http

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"finsmart/internal/auth"
	"finsmart/internal/cache"
	"finsmart/internal/core"
	"finsmart/internal/middleware/ratelimit"
	"finsmart/internal/middleware/security"
	"finsmart/internal/middleware/trace"
	"finsmart/internal/services"
	appweb "finsmart/web"
)

// Deps bundles everything the server needs.
type Deps struct {
	Users      *services.UserService
	Ledger     *services.LedgerService
	Categories *services.CategoryService
	Reports    *services.ReportService
	Tokens     *auth.Manager
}

type Server struct {
	http.Server

	users      *services.UserService
	ledger     *services.LedgerService
	categories *services.CategoryService
	reports    *services.ReportService
	tokens     *auth.Manager

	limiter  *ratelimit.Limiter
	detector *security.Detector

	// Report caches, keyed per user and month, invalidated on mutation.
	summaryCache *cache.LRUCache[core.MonthlySummary]
	profitCache  *cache.LRUCache[core.ProfitSummary]
	dailyCache   *cache.LRUCache[[]core.DailyTotals]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		users:      deps.Users,
		ledger:     deps.Ledger,
		categories: deps.Categories,
		reports:    deps.Reports,
		tokens:     deps.Tokens,

		limiter:  ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector: security.NewDetector(),

		summaryCache: cache.NewLRUCache[core.MonthlySummary](256, time.Minute),
		profitCache:  cache.NewLRUCache[core.ProfitSummary](256, time.Minute),
		dailyCache:   cache.NewLRUCache[[]core.DailyTotals](128, time.Minute),
		cacheManager: cache.NewManager(),
	}
	s.cacheManager.Register(s.summaryCache)
	s.cacheManager.Register(s.profitCache)
	s.cacheManager.Register(s.dailyCache)
	s.cacheManager.StartCleanup(10 * time.Minute)

	// Static frontend from the embedded FS.
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.FileServer(http.FS(sub))
		mux.Handle("GET /", security.StaticAssetMiddleware(3600)(static))
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	// Public auth surface.
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/verify-otp", s.handleVerifyOTP)
	mux.HandleFunc("POST /api/auth/resend-otp", s.handleResendOTP)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/forgot-password", s.handleForgotPassword)
	mux.HandleFunc("POST /api/auth/reset-password", s.handleResetPassword)

	// Everything below requires a bearer token.
	mux.HandleFunc("GET /api/auth/profile", s.authenticated(s.handleProfile))
	mux.HandleFunc("PUT /api/auth/profile", s.authenticated(s.handleUpdateProfile))
	mux.HandleFunc("DELETE /api/auth/account", s.authenticated(s.handleDeleteUser))

	mux.HandleFunc("POST /api/accounts/init", s.authenticated(s.handleInitAccounts))
	mux.HandleFunc("GET /api/accounts", s.authenticated(s.handleListAccounts))
	mux.HandleFunc("POST /api/accounts", s.authenticated(s.handleAddAccount))
	mux.HandleFunc("PATCH /api/accounts/{id}", s.authenticated(s.handleSetInitialBalance))
	mux.HandleFunc("DELETE /api/accounts/{id}", s.authenticated(s.handleDeleteAccount))

	mux.HandleFunc("GET /api/income", s.authenticated(s.handleListIncomeSources))
	mux.HandleFunc("POST /api/income", s.authenticated(s.handleAddIncome))
	mux.HandleFunc("POST /api/income/categories", s.authenticated(s.handleAddIncomeSource))
	mux.HandleFunc("PATCH /api/income/categories/{id}", s.authenticated(s.handleUpdateIncomeSource))
	mux.HandleFunc("GET /api/income/monthly", s.authenticated(s.handleIncomeMonthly))

	mux.HandleFunc("GET /api/expense", s.authenticated(s.handleListExpenseCategories))
	mux.HandleFunc("POST /api/expense", s.authenticated(s.handleAddExpense))
	mux.HandleFunc("POST /api/expense/categories", s.authenticated(s.handleAddExpenseCategory))
	mux.HandleFunc("PATCH /api/expense/categories/{id}", s.authenticated(s.handleUpdateExpenseCategory))
	mux.HandleFunc("GET /api/expense/monthly", s.authenticated(s.handleExpenseMonthly))

	mux.HandleFunc("POST /api/transfer", s.authenticated(s.handleTransfer))

	mux.HandleFunc("GET /api/transactions", s.authenticated(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.authenticated(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/summary", s.authenticated(s.handleProfitSummary))
	mux.HandleFunc("GET /api/transactions/daily-summary", s.authenticated(s.handleDailySummary))

	// Outermost first: tracing, then security headers, then rate limiting.
	traceMW := trace.NewMiddleware(s.detector.ExtractClientIP, s.detector.DetectSuspiciousRequest)
	headersMW := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limitMW := s.limiter.Middleware(s.detector.ExtractClientIP, nil)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           traceMW.Middleware(headersMW.Middleware(limitMW(mux))),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// authenticated rejects requests without a valid bearer token and stores the
// user id in the request context.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, r, core.ErrUnauthorized)
			return
		}
		userID, err := s.tokens.Parse(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), ownerIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// invalidateReports drops the caller's cached report entries for the month
// a mutation touched.
func (s *Server) invalidateReports(userID string, months ...core.YearMonth) {
	seen := map[string]bool{}
	for _, m := range months {
		key := m.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		s.summaryCache.Delete(reportKey(userID, key, string(core.TxIncome)))
		s.summaryCache.Delete(reportKey(userID, key, string(core.TxExpense)))
		s.profitCache.Delete(reportKey(userID, key, "profit"))
		s.dailyCache.Delete(reportKey(userID, key, "daily"))
	}
}

func reportKey(userID, month, kind string) string {
	return userID + "|" + month + "|" + kind
}

func currentMonth() core.YearMonth {
	now := time.Now().UTC()
	return core.YearMonth{Year: now.Year(), Month: now.Month()}
}

// Shutdown stops the HTTP listener and the background cache cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
