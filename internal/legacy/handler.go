package legacy

import (
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"

	"github.com/gin-gonic/gin"

	"skinwall/internal/artifact"
)

type Handler struct {
	svc    *Service
	prefix string // 用于拼下载链接
}

func NewHandler(s *Service, prefix string) *Handler { return &Handler{svc: s, prefix: prefix} }

func logReq(c *gin.Context, outcome string) {
	log.Printf("[legacy] [%s] [%s] [%s] %s", c.Request.Method, c.Request.URL.Path, c.ClientIP(), outcome)
}

// POST /upload
// multipart/form-data：file=<png>，key=<secret>
func (h *Handler) Upload(c *gin.Context) {
	if !h.svc.Authorized(c.PostForm("key")) {
		logReq(c, "unauthorized")
		c.JSON(http.StatusForbidden, gin.H{"error": "valid key required"})
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		logReq(c, "file missing")
		c.JSON(http.StatusBadRequest, gin.H{"error": "file missing"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file unreadable"})
		return
	}
	defer safeClose(f)

	name, err := h.svc.Save(fh.Filename, f)
	if err != nil {
		if errors.Is(err, ErrNotPNG) {
			logReq(c, err.Error())
			c.JSON(http.StatusBadRequest, gin.H{"error": "only png files are allowed"})
			return
		}
		logReq(c, "save failed: "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	logReq(c, "uploaded "+name)
	c.JSON(http.StatusOK, gin.H{"message": "uploaded", "url": h.downloadURL(c, name)})
}

// GET /uploads/:filename?key=...
func (h *Handler) Download(c *gin.Context) {
	if !h.svc.Authorized(c.Query("key")) {
		logReq(c, "unauthorized")
		c.JSON(http.StatusForbidden, gin.H{"error": "valid key required"})
		return
	}
	name := c.Param("filename")
	fp, err := h.svc.Path(name)
	if err != nil {
		logReq(c, err.Error())
		if artifact.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "file not found: " + name})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	logReq(c, "ok")
	c.File(fp)
}

// downloadURL 不含 key，调用方自行拼接 ?key=
func (h *Handler) downloadURL(c *gin.Context, name string) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   c.Request.Host,
		Path:   path.Join("/", h.prefix, "uploads", name),
	}
	return u.String()
}

func safeClose(f multipart.File) { _ = f.Close() }
