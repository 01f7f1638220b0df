package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/lauruschat/lauruschat/internal/channels"
)

const (
	dedupeSize = 1024
	dedupeTTL  = 2 * time.Minute
)

// Responder generates a reply for an inbound message. It never fails:
// internal errors surface as fallback reply text.
type Responder interface {
	GenerateResponse(ctx context.Context, message, identity, displayName string) string
}

// Sender delivers a reply back over WhatsApp.
type Sender interface {
	SendText(ctx context.Context, to, text string) error
}

// Server exposes the WhatsApp webhook and the direct chat endpoint.
type Server struct {
	engine      *gin.Engine
	responder   Responder
	sender      Sender
	verifyToken string
	port        int

	// seen guards against duplicate webhook deliveries, keyed by
	// identity plus message digest with a short TTL.
	seen *expirable.LRU[string, struct{}]
}

func New(responder Responder, sender Sender, verifyToken string, port int, whatsappEnabled bool) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:      engine,
		responder:   responder,
		sender:      sender,
		verifyToken: verifyToken,
		port:        port,
		seen:        expirable.NewLRU[string, struct{}](dedupeSize, nil, dedupeTTL),
	}

	engine.GET("/", s.handleRoot)
	engine.POST("/chat", s.handleChat)
	if whatsappEnabled {
		engine.GET("/webhook", s.handleVerify)
		engine.POST("/webhook", s.handleWebhook)
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "lauruschat"})
}

// handleVerify answers the Cloud API's webhook subscription handshake.
func (s *Server) handleVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.String(http.StatusBadRequest, "missing parameters")
		return
	}
	if mode != "subscribe" || token != s.verifyToken {
		slog.Warn("webhook verification rejected", "mode", mode)
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, challenge)
}

func (s *Server) handleWebhook(c *gin.Context) {
	var payload channels.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	msg, name, ok := payload.TextMessage()
	if !ok {
		// Status callbacks and unsupported message types are
		// acknowledged without a reply.
		c.Status(http.StatusOK)
		return
	}

	if s.duplicate(msg.From, msg.Text.Body) {
		slog.Info("duplicate delivery dropped", "identity", msg.From)
		c.Status(http.StatusOK)
		return
	}

	reply := s.responder.GenerateResponse(c.Request.Context(), msg.Text.Body, msg.From, name)
	if err := s.sender.SendText(c.Request.Context(), msg.From, reply); err != nil {
		slog.Error("reply delivery failed", "identity", msg.From, "error", err)
	}
	c.Status(http.StatusOK)
}

type chatRequest struct {
	Message    string `json:"message" binding:"required"`
	Name       string `json:"name"`
	CustomerID string `json:"customer_id"`
}

// handleChat serves direct callers without a messaging channel. The
// caller's identity is their customer id, falling back to client IP.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	identity := req.CustomerID
	if identity == "" {
		identity = c.ClientIP()
	}

	reply := s.responder.GenerateResponse(c.Request.Context(), req.Message, identity, req.Name)
	c.JSON(http.StatusOK, gin.H{"response": reply})
}

// duplicate records the delivery and reports whether it was already
// seen within the TTL window.
func (s *Server) duplicate(identity, message string) bool {
	digest := sha256.Sum256([]byte(message))
	key := identity + ":" + hex.EncodeToString(digest[:])
	if _, ok := s.seen.Get(key); ok {
		return true
	}
	s.seen.Add(key, struct{}{})
	return false
}
