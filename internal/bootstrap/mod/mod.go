package mod

import (
	"fmt"
	"log"
	"os"
	"path"
	"strings"

	"skinwall/internal/bootstrap/plug"

	"github.com/gin-gonic/gin"
)

// MountAll 会根据环境变量自动决定“哪些模块、什么顺序、用什么前缀”进行挂载。
// 开关与顺序：
//
//	MODULES=skinwall,legacy          # 仅挂这些，并按给定顺序
//	MODULES_DISABLE=legacy           # 全部默认启用的基础上，禁用这些
//	legacy_ENABLED=true|false        # 单模块覆盖
//
// 前缀：
//
//	API_ROOT_PREFIX=/api/v1          # 给所有模块前缀统一加根（可选）
//	skinwall_PREFIX=/x               # 单模块前缀覆盖（优先级更高）
//
// 任一模块挂载失败都返回错误，由调用方决定退出。
func MountAll(engine *gin.Engine) error {
	names := plug.Names()
	if len(names) == 0 {
		log.Printf("[mod] no modules registered")
		return nil
	}

	enabledList := parseList(os.Getenv("MODULES"))
	disabledSet := toSet(parseList(os.Getenv("MODULES_DISABLE")))
	root := strings.TrimSpace(os.Getenv("API_ROOT_PREFIX"))

	var order []string
	if len(enabledList) > 0 {
		for _, n := range enabledList {
			if plug.Get(n) != nil {
				order = append(order, n)
			} else {
				log.Printf("[mod] MODULES includes unknown: %s", n)
			}
		}
	} else {
		order = names
	}

	for _, name := range order {
		m := plug.Get(name)
		if m == nil {
			continue
		}
		if !decideEnabled(name, m.DefaultEnabled(), enabledList, disabledSet) {
			log.Printf("[mod] skip %s (disabled)", name)
			continue
		}

		prefix := modulePrefix(name, m.DefaultPrefix(), root)
		if prefix == "" {
			prefix = "/"
		}
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}

		m.InitEnv()

		if err := m.Mount(engine, prefix); err != nil {
			return fmt.Errorf("mount %s: %w", name, err)
		}
		plug.MarkMounted(name, prefix)
		log.Printf("[mod] mounted %s at %s", name, prefix)
	}
	return nil
}

func decideEnabled(name string, def bool, explicitOrder []string, disabledSet map[string]struct{}) bool {
	// 单模块强制开关优先：<name>_ENABLED
	if v := os.Getenv(strings.ToLower(name) + "_ENABLED"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	if len(explicitOrder) > 0 {
		for _, n := range explicitOrder {
			if n == name {
				_, dis := disabledSet[name]
				return !dis
			}
		}
		return false
	}
	if _, dis := disabledSet[name]; dis {
		return false
	}
	return def
}

func modulePrefix(name, def, root string) string {
	if v := os.Getenv(strings.ToLower(name) + "_PREFIX"); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if strings.TrimSpace(root) == "" {
		return def
	}
	join := path.Join(root, strings.TrimPrefix(def, "/"))
	if !strings.HasPrefix(join, "/") {
		join = "/" + join
	}
	return join
}

func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func toSet(list []string) map[string]struct{} {
	m := make(map[string]struct{}, len(list))
	for _, v := range list {
		m[v] = struct{}{}
	}
	return m
}
