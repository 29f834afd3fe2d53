// Package httpapi carries the small REST surface next to the realtime
// channel: health, the reference dataset, and a QR code for sharing a room.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"azfootball/internal/players"
)

const qrSize = 320 // mobile-friendly

// Register mounts the REST routes. store may be nil when the dataset failed
// to load; the endpoint then reports the degraded state instead of names.
func Register(r *gin.Engine, store *players.Store) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	r.GET("/api/players/:mode", func(c *gin.Context) {
		mode := c.Param("mode")
		if mode != players.ModeLegacy && mode != players.ModeModern {
			c.JSON(http.StatusBadRequest, gin.H{"error": `Invalid mode. Use "legacy" or "modern"`})
			return
		}
		if store == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Player database not available"})
			return
		}
		names, err := store.Names(mode)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, names)
	})

	r.GET("/api/rooms/:roomId/qr", func(c *gin.Context) {
		roomID := strings.ToUpper(strings.TrimSpace(c.Param("roomId")))
		if roomID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing room id"})
			return
		}
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		url := scheme + "://" + c.Request.Host + "/game/" + roomID

		png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "qr generation failed"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	})
}
