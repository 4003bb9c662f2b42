package handler

import (
	"io"
	"net/http"
	"strconv"

	"dairy-collection-backend/internal/events"
	"dairy-collection-backend/internal/services/amcu"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AmcuHandler struct {
	amcuSvc *amcu.Service
	bus     *events.Bus
	log     *zap.Logger
}

func NewAmcuHandler(amcuSvc *amcu.Service, bus *events.Bus, log *zap.Logger) *AmcuHandler {
	return &AmcuHandler{amcuSvc: amcuSvc, bus: bus, log: log.Named("amcu.http")}
}

// Feed consumes a raw AMCU byte stream from the request body. One
// decoder per request, so chunked transfer can split lines anywhere.
// Per-packet failures never stop the stream; the response reports
// counts.
func (h *AmcuHandler) Feed(c *gin.Context) {
	ctx := c.Request.Context()
	var ingested, failed int

	decoder := amcu.NewDecoder(func(fields amcu.Fields) {
		if _, err := h.amcuSvc.IngestFields(ctx, fields); err != nil {
			failed++
			h.log.Warn("packet rejected", zap.Error(err))
			return
		}
		ingested++
	})

	if _, err := io.Copy(decoder, c.Request.Body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read stream", "ingested": ingested, "failed": failed})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ingested": ingested, "failed": failed})
}

// Simulate ingests one packet given as a JSON field map, for testing
// without a device attached.
func (h *AmcuHandler) Simulate(c *gin.Context) {
	var fields map[string]string
	if err := c.BindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	entry, err := h.amcuSvc.IngestFields(c.Request.Context(), amcu.Fields(fields))
	if err != nil {
		respondIngestError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"entry": entry})
}

func (h *AmcuHandler) Logs(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	logs, err := h.amcuSvc.RecentLogs(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch logs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// Events streams entry.created and decoder.error over SSE until the
// client disconnects.
func (h *AmcuHandler) Events(c *gin.Context) {
	ch, cancel := h.bus.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(evt.Type, evt)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
