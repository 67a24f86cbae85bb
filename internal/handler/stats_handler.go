package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/statlite/internal/logging"
	"github.com/statlite/internal/service"
)

type trackPayload struct {
	Site  string  `json:"site" binding:"required,min=1,max=100"`
	Page  string  `json:"page" binding:"required,min=1,max=2048"`
	Title *string `json:"title" binding:"omitempty,max=512"`
}

// Track 处理 POST /stats/track：准入检查、参数校验，然后写入队列并返回当前计数。
func (a *API) Track(c *gin.Context) {
	ip := service.ResolveClientIP(c.Request.Header, c.Request.RemoteAddr)

	decision := a.admission.Check(ip)
	if decision.Anomalous {
		respondError(c, http.StatusTooManyRequests, "Anomalous traffic")
		return
	}
	if !decision.Allowed {
		retryAfterMs := decision.RetryAfter.Milliseconds()
		c.Header("Retry-After", strconv.FormatInt(int64((decision.RetryAfter+time.Second-1)/time.Second), 10))
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "Too Many Requests",
			"retryAfterMs": retryAfterMs,
		})
		return
	}

	var payload trackPayload
	if !bindJSON(c, &payload, "Invalid payload") {
		return
	}

	summary, err := a.stats.Track(service.TrackEvent{
		Site:      payload.Site,
		Page:      payload.Page,
		IP:        ip,
		UserAgent: c.GetHeader("User-Agent"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTrackEvent) {
			respondError(c, http.StatusBadRequest, "Invalid payload")
			return
		}
		logging.Logger().Error().Err(err).Str("site", payload.Site).Msg("failed to read stats after track")
		respondError(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	var pagePV int64
	if summary.PagePV != nil {
		pagePV = *summary.PagePV
	}

	response := gin.H{
		"ok":      true,
		"site":    payload.Site,
		"page":    payload.Page,
		"totalPv": summary.TotalPV,
		"totalUv": summary.TotalUV,
		"pagePv":  pagePV,
	}
	if payload.Title != nil {
		response["title"] = *payload.Title
	}
	c.JSON(http.StatusOK, response)
}

// Summary 处理 GET /stats/summary，page 参数可选。
func (a *API) Summary(c *gin.Context) {
	site := c.Query("site")
	if site == "" {
		respondError(c, http.StatusBadRequest, "site required")
		return
	}
	page := c.Query("page")

	summary, err := a.stats.Summary(site, page)
	if err != nil {
		logging.Logger().Error().Err(err).Str("site", site).Msg("failed to load summary")
		respondError(c, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	response := gin.H{
		"ok":      true,
		"site":    site,
		"totalPv": summary.TotalPV,
		"totalUv": summary.TotalUV,
	}
	if summary.PagePV != nil {
		response["pagePv"] = *summary.PagePV
	}
	c.JSON(http.StatusOK, response)
}

// Health 返回存活状态。
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
