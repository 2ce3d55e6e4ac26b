package main

// 空导入：触发各模块 init() 向 plug 注册
import (
	_ "skinwall/internal/legacy"
	_ "skinwall/internal/skinwall"
)
