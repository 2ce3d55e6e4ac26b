package skinwall

import "github.com/gin-gonic/gin"

func Mount(r *gin.RouterGroup, svc *Service) {
	h := NewHandler(svc)
	r.POST("/create", h.Create)
	r.GET("/get/*file", h.Get)
	r.GET("/meta/:xuid", h.Meta)
}

// AttachTo 从环境构造服务（含旧数据迁移）并挂到 prefix 下
func AttachTo(engine *gin.Engine, prefix string) error {
	svc, err := NewService(ConfigFromEnv())
	if err != nil {
		return err
	}
	if prefix == "" {
		prefix = "/"
	}
	Mount(engine.Group(prefix), svc)
	return nil
}
