package app

import (
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"skinwall/internal/bootstrap/mod"
	"skinwall/internal/handler"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Config struct {
	Addr         string   // 监听地址（默认 :5001）
	CORSOrigins  []string // 允许的跨域源；"*" 表示全部
	AllowCreds   bool     // 是否允许携带凭据
	AllowHeaders []string // 允许的自定义头
	MaxBodyBytes int64    // 请求体上限
	LogFile      string   // 日志同时写入的文件；空则只写 stdout
}

func loadConfig() Config {
	addr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if addr == "" {
		addr = ":5001"
	}
	origins := splitList(os.Getenv("HTTP_CORS_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	allowCreds := false
	if v := strings.TrimSpace(os.Getenv("HTTP_CORS_CREDENTIALS")); v != "" {
		allowCreds = strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
	}
	allowHeaders := []string{"Authorization", "Content-Type"}
	if hs := splitList(os.Getenv("HTTP_CORS_HEADERS")); len(hs) > 0 {
		allowHeaders = hs
	}
	maxMB := 16
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv("HTTP_MAX_BODY_MB"))); err == nil && v > 0 {
		maxMB = v
	}
	logFile := "server.log"
	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		logFile = strings.TrimSpace(v)
	}
	return Config{
		Addr:         addr,
		CORSOrigins:  origins,
		AllowCreds:   allowCreds,
		AllowHeaders: allowHeaders,
		MaxBodyBytes: int64(maxMB) << 20,
		LogFile:      logFile,
	}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func corsConfig(cfg Config) cors.Config {
	c := cors.DefaultConfig()
	if len(cfg.CORSOrigins) == 1 && cfg.CORSOrigins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.CORSOrigins
		c.AllowCredentials = cfg.AllowCreds
	}
	for _, h := range cfg.AllowHeaders {
		c.AddAllowHeaders(h)
	}
	// 预检缓存
	c.MaxAge = 12 * time.Hour
	return c
}

// setupLogging 日志同时写 stdout 和文件（与 gin 的访问日志共用）
func setupLogging(path string) io.Closer {
	log.SetFlags(log.Ldate | log.Ltime)
	if path == "" {
		return nopCloser{}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.Printf("[app] open log file %s: %v; logging to stdout only", path, err)
		return nopCloser{}
	}
	w := io.MultiWriter(os.Stdout, f)
	log.SetOutput(w)
	gin.DefaultWriter = w
	gin.DefaultErrorWriter = w
	return f
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewEngine 组装中间件与全部已注册模块；模块挂载失败（缺少密钥、迁移失败等）返回错误
func NewEngine(cfg Config, version, commit, build string) (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())
	engine.MaxMultipartMemory = cfg.MaxBodyBytes
	engine.Use(MaxBodyBytes(cfg.MaxBodyBytes))
	engine.Use(cors.New(corsConfig(cfg)))

	// 健康与版本
	info := handler.NewInfoHandler(version, commit, build)
	engine.GET("/status", info.HandleStatus)
	engine.GET("/version", info.HandleVersion)

	// 依赖 autogen_imports.go 中的空导入触发各模块 init() 注册
	if err := mod.MountAll(engine); err != nil {
		return nil, err
	}

	engine.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{
			"message": "skinwall is running.",
			"version": version,
			"commit":  commit,
			"build":   build,
		})
	})
	return engine, nil
}

func Run(version, commit, build string) {
	cfg := loadConfig()
	closer := setupLogging(cfg.LogFile)
	defer closer.Close()

	// Gin 模式：默认为 debug；生产可设 GIN_MODE=release
	if m := strings.TrimSpace(os.Getenv("GIN_MODE")); m != "" {
		gin.SetMode(m)
	}

	engine, err := NewEngine(cfg, version, commit, build)
	if err != nil {
		log.Fatalf("启动失败: %v", err)
	}

	log.Printf("服务器启动于 %s (version %s)", cfg.Addr, version)
	if err := engine.Run(cfg.Addr); err != nil {
		log.Fatalf("服务器启动失败: %v", err)
	}
}
