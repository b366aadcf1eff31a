package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix 环境变量前缀，例如 RENTAL_DATA_HOUR_PATH
const EnvPrefix = "RENTAL"

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Data struct {
		Dir          string `json:"dir" yaml:"dir" envconfig:"DIR"`                                               // 数据文件目录
		HourPath     string `json:"hour_path" yaml:"hour_path" envconfig:"HOUR_PATH" validate:"required"`        // 小时数据
		DayPath      string `json:"day_path" yaml:"day_path" envconfig:"DAY_PATH" validate:"required"`           // 日数据
		SheetName    string `json:"sheet_name" yaml:"sheet_name" envconfig:"SHEET_NAME"`                         // xlsx 数据源的工作表
		HeaderRow    int    `json:"header_row" yaml:"header_row" envconfig:"HEADER_ROW" validate:"gte=0"`        // xlsx 标题行(从0开始)
		StrictTotals bool   `json:"strict_totals" yaml:"strict_totals" envconfig:"STRICT_TOTALS"`                // total 不一致时拒绝加载
		Watch        bool   `json:"watch" yaml:"watch" envconfig:"WATCH"`                                        // 监控数据文件变化
	} `json:"data" yaml:"data" envconfig:"DATA"`

	Server struct {
		Addr string `json:"addr" yaml:"addr" envconfig:"ADDR"` // 为空则不启动 HTTP 服务
	} `json:"server" yaml:"server" envconfig:"SERVER"`

	LogName    string `json:"log_name" yaml:"log_name" envconfig:"LOG_NAME" validate:"required"`
	LogMaxSize string `json:"log_max_size" yaml:"log_max_size" envconfig:"LOG_MAX_SIZE"` // 例如 "10 * 1024 * 1024"

	Schedule struct {
		Refresh string `json:"refresh" yaml:"refresh" envconfig:"REFRESH"` // cron 表达式，例如 "@every 10m"
	} `json:"schedule" yaml:"schedule" envconfig:"SCHEDULE"`

	Email struct {
		Enabled       bool     `json:"enabled" yaml:"enabled" envconfig:"ENABLED"`
		Server        string   `json:"server" yaml:"server" envconfig:"SERVER" validate:"required_if=Enabled true"`     // 邮件服务器地址
		Username      string   `json:"username" yaml:"username" envconfig:"USERNAME" validate:"required_if=Enabled true"` // 邮箱用户名
		Password      string   `json:"password" yaml:"password" envconfig:"PASSWORD"`                                  // 邮箱密码
		TargetSubject string   `json:"target_subject" yaml:"target_subject" envconfig:"TARGET_SUBJECT"`                // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval" yaml:"check_interval" envconfig:"CHECK_INTERVAL"`                // 检查新邮件的间隔时间
	} `json:"email" yaml:"email" envconfig:"EMAIL"`

	Push struct {
		Webhook string `json:"webhook" yaml:"webhook" envconfig:"WEBHOOK" validate:"omitempty,url"` // 机器人 webhook 地址
		Secret  string `json:"secret" yaml:"secret" envconfig:"SECRET"`                             // 加签密钥
		Dataset string `json:"dataset" yaml:"dataset" envconfig:"DATASET" validate:"omitempty,oneof=hour day"`
	} `json:"push" yaml:"push" envconfig:"PUSH"`

	Report struct {
		Dir      string `json:"dir" yaml:"dir" envconfig:"DIR"`                // xlsx 报表输出目录
		Language string `json:"language" yaml:"language" envconfig:"LANGUAGE"` // 数字格式语言，例如 en、zh
	} `json:"report" yaml:"report" envconfig:"REPORT"`
}

// DataConfig 规范列名 → 数据源表头 的映射
type DataConfig struct {
	Columns map[string]string `json:"columns" yaml:"columns"`
}

var (
	once               sync.Once
	instance           *Config
	dataConfigInstance *DataConfig
	mu                 sync.RWMutex
	validate           = validator.New()
)

// defaultColumns 原始数据集的表头
var defaultColumns = map[string]string{
	"date":              "dteday",
	"hour":              "hr",
	"season":            "season",
	"weather_situation": "weathersit",
	"is_holiday":        "holiday",
	"is_working_day":    "workingday",
	"casual_count":      "casual",
	"registered_count":  "registered",
	"total_count":       "cnt",
}

// LoadConfig 只加载一次配置，之后返回同一实例
func LoadConfig(folder, file, dataFile string) (*Config, *DataConfig, error) {
	var err error
	once.Do(func() {
		instance, dataConfigInstance, err = Load(folder, file, dataFile)
	})
	return instance, dataConfigInstance, err
}

// Load 读取配置文件(json/yaml)，叠加 .env 与环境变量，最后校验
// dataFile 为空或不存在时使用默认列映射
func Load(folder, file, dataFile string) (*Config, *DataConfig, error) {
	// .env 不存在不是错误
	_ = godotenv.Load(filepath.Join(folder, ".env"))

	cfg := Default()
	dcfg := &DataConfig{Columns: map[string]string{}}
	var errs *multierror.Error

	if file != "" {
		if err := decodeFile(filepath.Join(folder, file), cfg); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("解析Config失败: %w", err))
		}
	}

	if dataFile != "" {
		path := filepath.Join(folder, dataFile)
		if _, err := os.Stat(path); err == nil {
			if err := decodeFile(path, dcfg); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("解析DataConfig失败: %w", err))
			}
		}
	}
	dcfg.fillDefaults()

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("读取环境变量失败: %w", err))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, nil, err
	}

	cfg.resolvePaths()

	if err := validate.Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, dcfg, nil
}

// Default 默认配置
func Default() *Config {
	cfg := &Config{}
	cfg.Data.Dir = "data"
	cfg.Data.HourPath = "hour.csv"
	cfg.Data.DayPath = "day.csv"
	cfg.LogName = "app.log"
	cfg.LogMaxSize = "10 * 1024 * 1024"
	cfg.Email.TargetSubject = "bike-sharing"
	cfg.Email.CheckInterval = Duration(5 * time.Minute)
	cfg.Push.Dataset = "day"
	cfg.Report.Dir = "reports"
	cfg.Report.Language = "en"
	return cfg
}

// DefaultDataConfig 默认列映射
func DefaultDataConfig() *DataConfig {
	dc := &DataConfig{Columns: map[string]string{}}
	dc.fillDefaults()
	return dc
}

// resolvePaths 数据文件相对路径基于数据目录
func (c *Config) resolvePaths() {
	if !filepath.IsAbs(c.Data.HourPath) {
		c.Data.HourPath = filepath.Join(c.Data.Dir, c.Data.HourPath)
	}
	if !filepath.IsAbs(c.Data.DayPath) {
		c.Data.DayPath = filepath.Join(c.Data.Dir, c.Data.DayPath)
	}
}

func decodeFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("无法读取文件 %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}

func (dc *DataConfig) fillDefaults() {
	if dc.Columns == nil {
		dc.Columns = map[string]string{}
	}
	for k, v := range defaultColumns {
		if _, ok := dc.Columns[k]; !ok {
			dc.Columns[k] = v
		}
	}
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON/YAML/环境变量中的 "5m" 写法
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.Decode(s)
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML 实现yaml.Unmarshaler接口
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.Decode(node.Value)
}

// Decode 实现envconfig.Decoder接口
func (d *Duration) Decode(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// Column 取数据源中的表头名
func (dc *DataConfig) Column(name string) string {
	mu.RLock()
	defer mu.RUnlock()
	if v, ok := dc.Columns[name]; ok {
		return v
	}
	return name
}

// Snapshot 返回列映射副本
func (dc *DataConfig) Snapshot() map[string]string {
	mu.RLock()
	defer mu.RUnlock()
	cp := make(map[string]string, len(dc.Columns))
	for k, v := range dc.Columns {
		cp[k] = v
	}
	return cp
}
