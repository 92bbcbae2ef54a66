package config

import (
	"epg/internal/app/epg"
	"epg/internal/pkg/logging"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultUpdateAt = "03:00"
	defaultTimeout  = 5 * time.Minute
	defaultPort     = 8080

	envURL      = "EPG_URL"
	envUpdateAt = "EPG_UPDATE_AT"
	envLogLevel = "EPG_LOG_LEVEL"
)

type Config struct {
	URL     string            `json:"url" yaml:"url"`         // 必填，XMLTV文件地址，支持gzip压缩
	Headers map[string]string `json:"headers" yaml:"headers"` // 自定义HTTP请求头
	Timeout time.Duration     `json:"timeout" yaml:"timeout"` // 下载超时时间

	BatchSize     int           `json:"batchSize" yaml:"batchSize"`         // 每批处理的programme数量
	BatchDelay    time.Duration `json:"batchDelay" yaml:"batchDelay"`       // 批次之间的间隔
	MaxAge        time.Duration `json:"maxAge" yaml:"maxAge"`               // 节目单有效期，超过后需要更新
	UpcomingLimit int           `json:"upcomingLimit" yaml:"upcomingLimit"` // 缺省返回的后续节目数量

	UpdateAt     string `json:"updateAt" yaml:"updateAt"` // 每天定时更新的时间，例如：03:00
	UpdateHour   int    `json:"-" yaml:"-"`               // Validate()时进行填充
	UpdateMinute int    `json:"-" yaml:"-"`               // Validate()时进行填充

	Port int `json:"port" yaml:"port"` // HTTP服务的监听端口

	Log logging.LogConfig `json:"log" yaml:"log"` // 日志配置
}

func (c *Config) Validate() error {
	// 校验config配置
	if c.URL == "" {
		return errors.New("invalid EPG config: url is empty")
	}

	// L()：获取全局logger
	logger := zap.L()

	if c.UpdateAt == "" {
		c.UpdateAt = defaultUpdateAt
	}
	updateAt, err := time.Parse("15:04", c.UpdateAt)
	if err != nil {
		return fmt.Errorf("invalid EPG config: updateAt %q: %w", c.UpdateAt, err)
	}
	c.UpdateHour, c.UpdateMinute = updateAt.Hour(), updateAt.Minute()

	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.BatchSize <= 0 {
		if c.BatchSize < 0 {
			logger.Warn("The batch size is incorrect. Use the default value.", zap.Int("batchSize", c.BatchSize))
		}
		c.BatchSize = epg.DefaultBatchSize
	}
	if c.BatchDelay < 0 {
		logger.Warn("The batch delay is negative. Skip it.", zap.Duration("batchDelay", c.BatchDelay))
		c.BatchDelay = 0
	}
	if c.MaxAge <= 0 {
		c.MaxAge = epg.DefaultMaxAge
	}
	if c.UpcomingLimit <= 0 {
		c.UpcomingLimit = epg.DefaultUpcomingLimit
	}
	if c.Port <= 0 {
		c.Port = defaultPort
	}

	return nil
}

// applyEnv 使用环境变量覆盖配置
func (c *Config) applyEnv() error {
	if v := os.Getenv(envURL); v != "" {
		c.URL = v
	}
	if v := os.Getenv(envUpdateAt); v != "" {
		c.UpdateAt = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		level, err := zapcore.ParseLevel(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envLogLevel, err)
		}
		c.Log.Level = level
	}
	return nil
}

// Load 读取配置文件，若存在.env文件则先加载其中的环境变量
func Load(fPath string) (*Config, error) {
	// .env文件不存在时忽略
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	// 读取配置文件
	data, err := os.ReadFile(fPath)
	if err != nil {
		return nil, err
	}
	var config Config
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	if err = config.applyEnv(); err != nil {
		return nil, err
	}
	config.URL = strings.TrimSpace(config.URL)

	return &config, nil
}

func CreateDefaultCfg(fPath string, logFile string) error {
	// 写入默认配置
	f, err := os.Create(fPath)
	if err != nil {
		return err
	}
	defer f.Close()

	// 创建编码器
	encoder := yaml.NewEncoder(f)
	encoder.SetIndent(2)

	// 缺省配置
	defaultCfg := Config{
		URL: "https://example.com/epg.xml.gz",
		Headers: map[string]string{
			"Accept": "application/xml, text/xml, application/gzip, */*",
		},
		Timeout:       defaultTimeout,
		BatchSize:     epg.DefaultBatchSize,
		BatchDelay:    10 * time.Millisecond,
		MaxAge:        epg.DefaultMaxAge,
		UpcomingLimit: epg.DefaultUpcomingLimit,
		UpdateAt:      defaultUpdateAt,
		Port:          defaultPort,
		Log: logging.LogConfig{
			Level:      zapcore.InfoLevel,
			FileName:   logFile,
			MaxSize:    10,
			MaxAge:     7,
			MaxBackups: 3,
			IsStdout:   true,
		},
	}

	if err = encoder.Encode(&defaultCfg); err != nil {
		return err
	}
	return encoder.Close()
}
