package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skinwall/internal/bootstrap/plug"
)

// InfoHandler 持有版本信息与启动时间
type InfoHandler struct {
	CodeName string
	Version  string
	Commit   string
	Build    string
	Started  time.Time
}

func NewInfoHandler(version, commit, build string) *InfoHandler {
	return &InfoHandler{
		CodeName: "Steve",
		Version:  version,
		Commit:   commit,
		Build:    build,
		Started:  time.Now(),
	}
}

// HandleStatus 处理 /status 请求
func (h *InfoHandler) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "OK",
		"uptime":  time.Since(h.Started).Truncate(time.Second).String(),
	})
}

// HandleVersion 处理 /version 请求，附带已挂载模块及其前缀
func (h *InfoHandler) HandleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"codeName": h.CodeName,
		"version":  h.Version,
		"commit":   h.Commit,
		"build":    h.Build,
		"modules":  plug.Mounted(),
	})
}
