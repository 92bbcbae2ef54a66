package util

import (
	"os"
	"path/filepath"
)

// GetCurrentAbPathByExecutable 获取当前执行程序所在的绝对路径，用于存放配置文件和日志
func GetCurrentAbPathByExecutable() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(exePath)
	// 符号链接无法解析时使用原路径
	if res, err := filepath.EvalSymlinks(dir); err == nil {
		return res, nil
	}
	return dir, nil
}
