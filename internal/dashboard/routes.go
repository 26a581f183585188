package dashboard

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/cropsathi/sathi/internal/store"
)

// registerRoutes sets up all dashboard routes on the Gin router.
func registerRoutes(router *gin.Engine, views ViewSource, st *store.Store) {
	h := newHub(views)

	// Pages.
	router.GET("/", handleIndex(views))

	// JSON API.
	router.GET("/api/view", handleView(views))
	router.GET("/api/history", handleHistory(st))
	router.GET("/api/prices/:crop", handlePrices(st))

	// Live updates.
	router.GET("/api/events", handleSSE(views, h))
}

func handleIndex(views ViewSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		data := gin.H{"Busy": views.Busy()}
		if v, ok := views.CurrentView(); ok {
			data["View"] = v
		}
		c.HTML(http.StatusOK, "index.html", data)
	}
}

// handleView returns the latest view-model, or 404 before the first
// successful submission.
func handleView(views ViewSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := views.CurrentView()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"detail": "no advisory yet"})
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// handleHistory returns recently cached advisories, newest first.
func handleHistory(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusOK, []HistoryRow{})
			return
		}
		limit := 20
		if q := c.Query("limit"); q != "" {
			if n, err := strconv.Atoi(q); err == nil && n > 0 {
				limit = n
			}
		}
		records, err := st.RecentAdvisories(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, historyRows(records))
	}
}

// handlePrices returns the cached price series for one crop, oldest first.
func handlePrices(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st == nil {
			c.JSON(http.StatusOK, []PriceRow{})
			return
		}
		limit := 30
		if q := c.Query("limit"); q != "" {
			if n, err := strconv.Atoi(q); err == nil && n > 0 {
				limit = n
			}
		}
		points, err := st.PriceHistory(c.Param("crop"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
			return
		}
		c.JSON(http.StatusOK, priceRows(points))
	}
}
