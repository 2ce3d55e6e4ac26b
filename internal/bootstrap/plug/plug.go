// Package plug 是模块注册表：各模块在 init() 中登记，mod.MountAll 挂载后回写前缀。
package plug

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// Module 由各业务模块实现
type Module interface {
	Name() string
	DefaultPrefix() string
	DefaultEnabled() bool
	InitEnv()
	Mount(e *gin.Engine, prefix string) error
}

type slot struct {
	mod    Module
	prefix string // 空 = 未挂载
}

var (
	mu    sync.RWMutex
	slots = map[string]*slot{}
)

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// Register 同名重复登记时后者覆盖
func Register(m Module) {
	if m == nil {
		return
	}
	k := key(m.Name())
	mu.Lock()
	defer mu.Unlock()
	if _, ok := slots[k]; ok {
		log.Printf("[plug] %s registered twice; keeping the last one", k)
	}
	slots[k] = &slot{mod: m}
}

// Names 已登记模块名，升序
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(slots))
	for n := range slots {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func Get(name string) Module {
	mu.RLock()
	defer mu.RUnlock()
	if s, ok := slots[key(name)]; ok {
		return s.mod
	}
	return nil
}

// MarkMounted 记录模块实际挂载的前缀；未登记的名字忽略
func MarkMounted(name, prefix string) {
	mu.Lock()
	defer mu.Unlock()
	if s, ok := slots[key(name)]; ok {
		s.prefix = prefix
	}
}

// Mounted 已挂载模块 -> 前缀
func Mounted() map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	out := make(map[string]string)
	for n, s := range slots {
		if s.prefix != "" {
			out[n] = s.prefix
		}
	}
	return out
}
