package skinwall

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"skinwall/internal/artifact"
	"skinwall/internal/skin"
)

var errMissingXUID = errors.New("xuid required")

type Handler struct{ svc *Service }

func NewHandler(s *Service) *Handler { return &Handler{svc: s} }

type createRequest struct {
	Key  string          `json:"key"`
	XUID json.RawMessage `json:"xuid"` // 字符串或数字都接受
	Skin string          `json:"skin"`
}

func logReq(c *gin.Context, outcome string) {
	log.Printf("[skinwall] [%s] [%s] [%s] %s", c.Request.Method, c.Request.URL.Path, c.ClientIP(), outcome)
}

// POST /create
// { "key": "...", "xuid": "123", "skin": "<base64 RGBA>" }
func (h *Handler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			logReq(c, "body too large")
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body too large"})
			return
		}
		logReq(c, "bad json: "+err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json body"})
		return
	}
	if !h.svc.Authorized(req.Key) {
		logReq(c, "unauthorized")
		c.JSON(http.StatusForbidden, gin.H{"error": "valid key required"})
		return
	}

	xuid, err := parseXUID(req.XUID)
	if errors.Is(err, errMissingXUID) || req.Skin == "" {
		logReq(c, "xuid or skin missing")
		c.JSON(http.StatusBadRequest, gin.H{"error": "xuid and skin are required"})
		return
	}
	if err != nil {
		logReq(c, "bad xuid: "+err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "xuid must be an integer"})
		return
	}

	if err := h.svc.Create(c.Request.Context(), xuid, req.Skin); err != nil {
		if skin.IsInvalid(err) {
			logReq(c, "bad skin: "+err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logReq(c, "create failed: "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "image generation failed: " + err.Error()})
		return
	}

	logReq(c, "created "+strconv.FormatInt(xuid, 10))
	c.JSON(http.StatusCreated, gin.H{"message": "images created"})
}

// GET /get/<file>[?format=webp]
func (h *Handler) Get(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("file"), "/")

	if strings.EqualFold(c.Query("format"), "webp") {
		b, err := h.svc.WebP(name)
		if err != nil {
			h.fileError(c, name, err)
			return
		}
		logReq(c, "ok (webp)")
		c.Data(http.StatusOK, "image/webp", b)
		return
	}

	fp, err := h.svc.Path(name)
	if err != nil {
		h.fileError(c, name, err)
		return
	}
	logReq(c, "ok")
	c.File(fp)
}

func (h *Handler) fileError(c *gin.Context, name string, err error) {
	logReq(c, err.Error())
	if artifact.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found: " + name})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// GET /meta/:xuid?key=...
func (h *Handler) Meta(c *gin.Context) {
	if !h.svc.Authorized(c.Query("key")) {
		logReq(c, "unauthorized")
		c.JSON(http.StatusForbidden, gin.H{"error": "valid key required"})
		return
	}
	xuid, err := strconv.ParseInt(c.Param("xuid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "xuid must be an integer"})
		return
	}
	g, err := h.svc.Meta(c.Request.Context(), xuid)
	if err != nil {
		if errors.Is(err, ErrNoLedger) {
			c.JSON(http.StatusNotFound, gin.H{"error": "ledger disabled"})
			return
		}
		logReq(c, "meta failed: "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	if g == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, g)
}

// parseXUID 接受 "123" / 123；空值、null 和数字 0 视为缺失（字符串 "0" 可用）
func parseXUID(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, errMissingXUID
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, errMissingXUID
		}
		return strconv.ParseInt(s, 10, 64)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err == nil && n == 0 {
		return 0, errMissingXUID
	}
	return n, err
}
