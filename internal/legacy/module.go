package legacy

import (
	"skinwall/internal/bootstrap/plug"
	"skinwall/internal/legacy/envinit"

	"github.com/gin-gonic/gin"
)

type modLegacy struct{}

func (modLegacy) Name() string                        { return "legacy" }
func (modLegacy) DefaultPrefix() string               { return "/" }
func (modLegacy) DefaultEnabled() bool                { return false }
func (modLegacy) InitEnv()                            { envinit.Init() }
func (modLegacy) Mount(e *gin.Engine, p string) error { return AttachTo(e, p) }

func init() { plug.Register(modLegacy{}) }
