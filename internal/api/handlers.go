package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shackbot/internal/database"
	"shackbot/internal/models"
	"shackbot/internal/session"
)

// ChatRequest is one chat message from a client
type ChatRequest struct {
	SessionID string `json:"session_id"`
	MessageID string `json:"message_id"`
	Message   string `json:"message" binding:"required"`
}

// MenuResponse is the catalog as served to clients
type MenuResponse struct {
	Categories []string          `json:"categories"`
	Items      []models.MenuItem `json:"items"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// OrderItemView is one line of a placed order
type OrderItemView struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// OrderView is a placed order as served to clients
type OrderView struct {
	OrderID    string          `json:"order_id"`
	Items      []OrderItemView `json:"items"`
	TotalPrice float64         `json:"total_price"`
	Total      string          `json:"total"`
	Status     string          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

func newOrderView(rec *models.OrderRecord) OrderView {
	view := OrderView{
		OrderID:    rec.OrderID,
		Items:      make([]OrderItemView, 0, len(rec.Items)),
		TotalPrice: float64(rec.TotalCents) / 100,
		Total:      models.FormatCents(rec.TotalCents),
		Status:     rec.Status,
		CreatedAt:  rec.PlacedAt,
	}
	for _, it := range rec.Items {
		view.Items = append(view.Items, OrderItemView{
			Name:     it.Name,
			Category: it.Category,
			Price:    float64(it.PriceCents) / 100,
			Quantity: it.Quantity,
		})
	}
	return view
}

func (s *Server) createSession(c *gin.Context) {
	var sess *session.Session
	if sub := subject(c); sub != "" {
		sess = s.sessions.GetOrCreate(sub)
	} else {
		sess = s.sessions.Create()
	}
	c.JSON(http.StatusCreated, gin.H{"session_id": sess.ID})
}

func (s *Server) chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = subject(c)
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}
	if !ownsSession(c, sessionID) {
		return
	}

	sess := s.sessions.GetOrCreate(sessionID)
	reply := s.dispatcher.Handle(c.Request.Context(), sess, req.MessageID, req.Message)
	c.JSON(http.StatusOK, reply)
}

// lookupSession resolves the :id path parameter or writes a 403 or 404
func (s *Server) lookupSession(c *gin.Context) (*session.Session, bool) {
	if !ownsSession(c, c.Param("id")) {
		return nil, false
	}
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return nil, false
	}
	return sess, true
}

// endSession drops the session and its unplaced cart
func (s *Server) endSession(c *gin.Context) {
	if _, ok := s.lookupSession(c); !ok {
		return
	}
	s.sessions.Delete(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) getCart(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.dispatcher.Cart(sess))
}

func (s *Server) clearCart(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.dispatcher.Clear(sess))
}

func (s *Server) checkout(c *gin.Context) {
	sess, ok := s.lookupSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.dispatcher.Checkout(c.Request.Context(), sess))
}

func (s *Server) getMenu(c *gin.Context) {
	cat := s.menu.Get(c.Request.Context())
	resp := MenuResponse{
		Categories: cat.Categories(),
		Items:      cat.Items,
		FetchedAt:  cat.FetchedAt,
	}
	if category := strings.TrimSpace(c.Query("category")); category != "" {
		resp.Items = cat.ByCategory(category)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getOrder(c *gin.Context) {
	if s.orders == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	rec, err := s.orders.GetOrder(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, database.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	case err != nil:
		s.logger.Error("load order failed", zap.String("order_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load the order. Please try again."})
		return
	}
	if sub := subject(c); sub != "" && rec.SessionID != sub {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}
	c.JSON(http.StatusOK, newOrderView(rec))
}

// upsertMenuItem creates or reprices a menu item and drops the cached
// catalog so the change is served on the next read
func (s *Server) upsertMenuItem(c *gin.Context) {
	var item models.MenuItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := models.ValidateMenuItem(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.menuEditor.UpsertItem(item); err != nil {
		s.logger.Error("menu item upsert failed", zap.String("item", item.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save the menu item. Please try again."})
		return
	}
	s.menu.Invalidate(c.Request.Context())
	s.logger.Info("menu item saved", zap.String("item", item.Name), zap.Float64("price", item.Price))
	c.JSON(http.StatusOK, item)
}

// listSessionOrders returns the orders a session has placed, newest first
func (s *Server) listSessionOrders(c *gin.Context) {
	sessionID := c.Param("id")
	if !ownsSession(c, sessionID) {
		return
	}
	views := make([]OrderView, 0)
	if s.orders == nil {
		c.JSON(http.StatusOK, views)
		return
	}
	recs, err := s.orders.ListBySession(c.Request.Context(), sessionID)
	if err != nil {
		s.logger.Error("list orders failed", zap.String("session_id", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load your orders. Please try again."})
		return
	}
	for i := range recs {
		views = append(views, newOrderView(&recs[i]))
	}
	c.JSON(http.StatusOK, views)
}

// getMetrics returns the JSON metrics snapshot
func (s *Server) getMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.GetMetrics())
}
