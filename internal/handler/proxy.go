package handler

import (
	"io"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MediaProxyHandler fetches a direct video URL and streams the bytes back,
// forwarding Range requests so players can seek. Purely a rendering-layer
// helper; the sync core does not depend on it.
type MediaProxyHandler struct {
	client *http.Client
	logger *zap.Logger
}

// NewMediaProxyHandler creates the media proxy handler.
func NewMediaProxyHandler(logger *zap.Logger) *MediaProxyHandler {
	return &MediaProxyHandler{client: &http.Client{}, logger: logger}
}

// Proxy godoc
// GET /proxy?url=..
func (h *MediaProxyHandler) Proxy(c *gin.Context) {
	raw := c.Query("url")
	target, err := url.Parse(raw)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute http(s) URL"})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}
	if rng := c.GetHeader("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("proxy fetch failed", zap.String("url", target.String()), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream fetch failed"})
		return
	}
	defer resp.Body.Close()

	for _, name := range []string{"Content-Type", "Content-Length", "Content-Range", "Accept-Ranges"} {
		if v := resp.Header.Get(name); v != "" {
			c.Header(name, v)
		}
	}
	c.Status(resp.StatusCode)
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		h.logger.Debug("proxy stream interrupted", zap.Error(err))
	}
}
