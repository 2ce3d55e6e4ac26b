package skinwall

import (
	"skinwall/internal/bootstrap/plug"
	"skinwall/internal/skinwall/envinit"

	"github.com/gin-gonic/gin"
)

type modSkinwall struct{}

func (modSkinwall) Name() string                        { return "skinwall" }
func (modSkinwall) DefaultPrefix() string               { return "/" }
func (modSkinwall) DefaultEnabled() bool                { return true }
func (modSkinwall) InitEnv()                            { envinit.Init() }
func (modSkinwall) Mount(e *gin.Engine, p string) error { return AttachTo(e, p) }

func init() { plug.Register(modSkinwall{}) }
