package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shackbot/internal/logger"
	"shackbot/internal/models"
	"shackbot/internal/monitoring"
	"shackbot/internal/order"
	"shackbot/internal/session"
)

// Dispatcher handles chat messages and the cart actions
type Dispatcher interface {
	Handle(ctx context.Context, s *session.Session, messageID, text string) session.Reply
	Checkout(ctx context.Context, s *session.Session) session.Reply
	Clear(s *session.Session) session.Reply
	Cart(s *session.Session) order.Summary
}

// Menu serves the current catalog snapshot
type Menu interface {
	Get(ctx context.Context) models.Catalog
	Invalidate(ctx context.Context)
}

// MenuEditor writes menu items to the catalog's backing store
type MenuEditor interface {
	UpsertItem(item models.MenuItem) error
}

// OrderReader loads persisted orders
type OrderReader interface {
	GetOrder(ctx context.Context, orderID string) (*models.OrderRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]models.OrderRecord, error)
}

// Config holds the pieces the HTTP surface is built from
type Config struct {
	Dispatcher Dispatcher
	Sessions   *session.Registry
	Menu       Menu
	MenuEditor MenuEditor
	Orders     OrderReader
	Monitor    *monitoring.Monitor
	Logger     *zap.Logger
	// JWTSecret enables bearer auth on /api/v1 and /ws when set
	JWTSecret string
}

// Server is the chat HTTP and websocket surface
type Server struct {
	router     *gin.Engine
	dispatcher Dispatcher
	sessions   *session.Registry
	menu       Menu
	menuEditor MenuEditor
	orders     OrderReader
	monitor    *monitoring.Monitor
	logger     *zap.Logger
	jwtSecret  string
}

// NewServer creates the server and its routes
func NewServer(cfg Config) *Server {
	s := &Server{
		router:     gin.New(),
		dispatcher: cfg.Dispatcher,
		sessions:   cfg.Sessions,
		menu:       cfg.Menu,
		menuEditor: cfg.MenuEditor,
		orders:     cfg.Orders,
		monitor:    cfg.Monitor,
		logger:     logger.Component(cfg.Logger, "api"),
		jwtSecret:  cfg.JWTSecret,
	}
	if s.monitor == nil {
		s.monitor = monitoring.NewMonitor()
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Shake Shack assistant is running"})
	})
	s.router.GET("/metrics", gin.WrapH(s.monitor.Handler()))

	s.router.GET("/ws", s.auth(), s.handleWebSocket)

	v1 := s.router.Group("/api/v1", s.auth())
	{
		v1.POST("/sessions", s.createSession)
		v1.DELETE("/sessions/:id", s.endSession)
		v1.GET("/sessions/:id/orders", s.listSessionOrders)
		v1.GET("/sessions/:id/cart", s.getCart)
		v1.DELETE("/sessions/:id/cart", s.clearCart)
		v1.POST("/sessions/:id/checkout", s.checkout)

		v1.POST("/chat", s.chat)

		v1.GET("/menu", s.getMenu)
		if s.menuEditor != nil {
			v1.PUT("/menu/items", s.requireAdmin(), s.upsertMenuItem)
		}
		v1.GET("/orders/:id", s.getOrder)
		v1.GET("/metrics", s.getMetrics)
	}
}

// Router returns the Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) auth() gin.HandlerFunc {
	if s.jwtSecret == "" {
		return func(c *gin.Context) { c.Next() }
	}
	return AuthMiddleware(s.jwtSecret)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
