package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/prylval/affiliates/internal/decorator"
	"github.com/prylval/affiliates/internal/domain"
	"github.com/prylval/affiliates/internal/normalize"
)

// MaxDecorateBody caps the HTML accepted by the decorate endpoint
const MaxDecorateBody = 5 << 20

// AffiliateService is what the handlers need from the decorator
type AffiliateService interface {
	Load(ctx context.Context) (domain.AffiliateMap, error)
	Lookup(ctx context.Context, name string) (*domain.AffiliateEntry, bool)
	DecorateHTML(ctx context.Context, r io.Reader, w io.Writer) (decorator.Stats, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	affiliates AffiliateService
	logger     zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(affiliates AffiliateService, logger zerolog.Logger) *Handler {
	return &Handler{
		affiliates: affiliates,
		logger:     logger,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "affiliates-decorator",
		"version": "1.0.0",
	})
}

// ListAffiliates returns every displayable affiliate entry
func (h *Handler) ListAffiliates(c *gin.Context) {
	m, err := h.affiliates.Load(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(m),
		"entries": m,
	})
}

// LookupAffiliate resolves one editorial product name
func (h *Handler) LookupAffiliate(c *gin.Context) {
	name := strings.TrimSpace(c.Query("name"))
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": "query parameter 'name' is required",
		})
		return
	}

	// Load first so an unavailable map is reported as such, not as a miss
	if _, err := h.affiliates.Load(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}

	key := normalize.Name(name)
	entry, ok := h.affiliates.Lookup(c.Request.Context(), name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "no affiliate entry",
			"name":  name,
			"key":   key,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"name":  name,
		"key":   key,
		"entry": entry,
	})
}

// Decorate rewrites the posted HTML page with affiliate images and links
func (h *Handler) Decorate(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, MaxDecorateBody)

	var out bytes.Buffer
	stats, err := h.affiliates.DecorateHTML(c.Request.Context(), body, &out)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		h.respondError(c, err)
		return
	}

	c.Header("X-Affiliate-Decorated", strconv.Itoa(stats.Decorated))
	c.Header("X-Affiliate-Cards", strconv.Itoa(stats.Cards))
	c.Data(http.StatusOK, "text/html; charset=utf-8", out.Bytes())
}

func (h *Handler) respondError(c *gin.Context, err error) {
	switch {
	case decorator.IsUnavailable(err):
		h.logger.Warn().Err(err).Str("rid", RequestID(c)).Msg("affiliate map unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "affiliate map unavailable"})
	case errors.Is(err, domain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "details": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "request cancelled"})
	default:
		h.logger.Error().Err(err).Str("rid", RequestID(c)).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
