package devnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"mina-swap/pkg/logger"
	"mina-swap/pkg/types"
)

// ShutdownTimeout bounds how long Serve waits for in-flight requests
const ShutdownTimeout = 10 * time.Second

// DefaultPools seeds a fresh server
func DefaultPools() []Pool {
	return []Pool{
		{AssetA: "MINA", AssetB: "cUSD", ReserveA: 100000, ReserveB: 95000},
		{AssetA: "ADA", AssetB: "cUSD", ReserveA: 250000, ReserveB: 110000},
		{AssetA: "MINA", AssetB: "ADA", ReserveA: 50000, ReserveB: 108000},
	}
}

// Server is an in-memory AMM answering /quote and /swap
type Server struct {
	logger *logger.Logger
	now    func() time.Time

	mu    sync.Mutex
	pools map[string]*Pool
}

// NewServer creates a server seeded with pools
func NewServer(pools []Pool, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}

	s := &Server{
		logger: log,
		now:    time.Now,
		pools:  make(map[string]*Pool, len(pools)),
	}
	for i := range pools {
		p := pools[i]
		s.pools[poolKey(p.AssetA, p.AssetB)] = &p
	}
	return s
}

// Handler returns the gin engine serving the AMM API
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": s.now().UTC()})
	})
	router.GET("/pools", s.handlePools)
	router.POST("/quote", s.handleQuote)
	router.POST("/swap", s.handleSwap)

	return router
}

// Pools returns a snapshot of all pools ordered by pair
func (s *Server) Pools() []Pool {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.pools))
	for key := range s.pools {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]Pool, 0, len(keys))
	for _, key := range keys {
		out = append(out, *s.pools[key])
	}
	return out
}

// Quote prices a request against the matching pool
func (s *Server) Quote(req types.QuoteRequest) (*types.QuoteResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.lookup(req.FromAsset, req.ToAsset)
	if err != nil {
		return nil, err
	}

	trade, err := pool.Price(req.FromAsset, req.Amount)
	if err != nil {
		return nil, err
	}

	return &types.QuoteResponse{
		FromAsset: req.FromAsset,
		ToAsset:   req.ToAsset,
		AmountIn:  trade.AmountIn,
		AmountOut: trade.AmountOut,
		Fee:       trade.Fee,
	}, nil
}

// Swap prices a request and applies it to the pool
func (s *Server) Swap(req types.SwapRequest) (*types.SwapResponse, error) {
	if strings.TrimSpace(req.WalletAddress) == "" {
		return nil, errors.New("walletAddress is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pool, err := s.lookup(req.FromAsset, req.ToAsset)
	if err != nil {
		return nil, err
	}

	trade, err := pool.Price(req.FromAsset, req.Amount)
	if err != nil {
		return nil, err
	}
	pool.apply(req.FromAsset, trade)

	return &types.SwapResponse{
		TransactionID: uuid.New().String(),
		Status:        "submitted",
		SubmittedAt:   s.now().UTC().Format(time.RFC3339),
		Message: fmt.Sprintf("swapped %.6f %s for %.6f %s",
			trade.AmountIn, req.FromAsset, trade.AmountOut, req.ToAsset),
	}, nil
}

// lookup must be called with s.mu held
func (s *Server) lookup(from, to string) (*Pool, error) {
	if strings.EqualFold(from, to) {
		return nil, fmt.Errorf("%w %s/%s", ErrUnknownPool, from, to)
	}
	pool, ok := s.pools[poolKey(from, to)]
	if !ok {
		return nil, fmt.Errorf("%w %s/%s", ErrUnknownPool, from, to)
	}
	return pool, nil
}

func (s *Server) handlePools(c *gin.Context) {
	c.JSON(http.StatusOK, s.Pools())
}

func (s *Server) handleQuote(c *gin.Context) {
	var req types.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	resp, err := s.Quote(req)
	if err != nil {
		c.String(statusFor(err), "%s", err.Error())
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSwap(c *gin.Context) {
	var req types.SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "invalid request body: %v", err)
		return
	}

	resp, err := s.Swap(req)
	if err != nil {
		c.String(statusFor(err), "%s", err.Error())
		return
	}

	s.logger.WithFields(logrus.Fields{
		"transaction_id": resp.TransactionID,
		"wallet":         req.WalletAddress,
		"from":           req.FromAsset,
		"to":             req.ToAsset,
	}).Info("swap executed")

	c.JSON(http.StatusOK, resp)
}

func statusFor(err error) int {
	if errors.Is(err, ErrUnknownPool) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		}).Debug("devnet request")
	}
}

// Serve answers requests on ln until ctx is done, then drains
// outstanding requests for up to ShutdownTimeout
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	server := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", ln.Addr().String()).Info("devnet AMM listening")
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("devnet server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down devnet AMM")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("devnet server forced to shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
