package legacy

import "github.com/gin-gonic/gin"

func Mount(r *gin.RouterGroup, svc *Service) {
	h := NewHandler(svc, r.BasePath())
	r.POST("/upload", h.Upload)
	r.GET("/uploads/:filename", h.Download)
}

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
