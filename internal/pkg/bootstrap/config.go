// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 worker 的全部配置。加载顺序：默认值 → YAML 文件（CONFIG_FILE 指定，
// 可缺省）→ 环境变量。环境变量名沿用既有部署约定（KAFKA_BROKER、DATABASE_URL 等），
// 便于与现网编排文件兼容。
type Config struct {
	ServiceName string `yaml:"service_name"`
	HTTPPort    int    `yaml:"http_port"`
	LogLevel    string `yaml:"log_level"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		PendingTopic string   `yaml:"pending_topic"`
		ResultTopic  string   `yaml:"result_topic"`
		GroupID      string   `yaml:"group_id"`
	} `yaml:"kafka"`

	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		// 已完成事件在缓存中的保留时长（秒），0 表示不过期
		CompletedTTLSeconds int `yaml:"completed_ttl_seconds"`
	} `yaml:"redis"`

	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`

	Fraud struct {
		// 金额偏离均值多少百分比视为可疑
		SuspiciousVariationPercentage float64 `yaml:"suspicious_variation_percentage"`
		// 计算均值基线使用的历史发票条数
		InvoicesHistoryCount int `yaml:"invoices_history_count"`
		// 时间窗内达到多少张发票视为可疑
		SuspiciousInvoicesCount int `yaml:"suspicious_invoices_count"`
		// 高频规则的时间窗（小时）
		SuspiciousTimeframeHours int `yaml:"suspicious_timeframe_hours"`
		// 高频规则只统计金额不低于该值（分）的发票；0 表示统计全部
		HighValueCents int64 `yaml:"high_value_cents"`
		// 可疑账户规则的 CEL 断言表达式
		SuspiciousAccountExpression string `yaml:"suspicious_account_expression"`
	} `yaml:"fraud"`

	// 单条消息处理流程的超时（秒）
	ProcessingTimeoutSeconds int `yaml:"processing_timeout_seconds"`
}

// Load 构造最终配置。文件不存在不算错误，YAML 解析失败才会失败。
func Load() (*Config, error) {
	cfg := defaults()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers must not be empty")
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database dsn must not be empty")
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{
		ServiceName: "antifraud-worker",
		HTTPPort:    3101,
		LogLevel:    "info",
	}
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Kafka.PendingTopic = "pending_transactions"
	cfg.Kafka.ResultTopic = "transactions_result"
	cfg.Kafka.GroupID = "antifraud-worker"
	cfg.Redis.CompletedTTLSeconds = 86400
	cfg.Fraud.SuspiciousVariationPercentage = 50
	cfg.Fraud.InvoicesHistoryCount = 5
	cfg.Fraud.SuspiciousInvoicesCount = 3
	cfg.Fraud.SuspiciousTimeframeHours = 24
	cfg.Fraud.SuspiciousAccountExpression = "rejected_count >= 2"
	cfg.ProcessingTimeoutSeconds = 30
	return cfg
}

func applyEnv(cfg *Config) {
	if v := getEnv("KAFKA_BROKER", ""); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := getEnv("KAFKA_PENDING_TOPIC", ""); v != "" {
		cfg.Kafka.PendingTopic = v
	}
	if v := getEnv("KAFKA_RESULT_TOPIC", ""); v != "" {
		cfg.Kafka.ResultTopic = v
	}
	if v := getEnv("KAFKA_GROUP_ID", ""); v != "" {
		cfg.Kafka.GroupID = v
	}
	if v := getEnv("DATABASE_URL", ""); v != "" {
		cfg.Database.DSN = v
	}
	if v := getEnv("REDIS_ADDR", ""); v != "" {
		cfg.Redis.Addr = v
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		cfg.Redis.Password = v
	}
	if v := getEnv("JAEGER_ENDPOINT", ""); v != "" {
		cfg.Jaeger.Endpoint = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := lookupInt("ANTIFRAUD_WORKER_PORT"); ok {
		cfg.HTTPPort = v
	}
	if v, ok := lookupFloat("SUSPICIOUS_VARIATION_PERCENTAGE"); ok {
		cfg.Fraud.SuspiciousVariationPercentage = v
	}
	if v, ok := lookupInt("INVOICES_HISTORY_COUNT"); ok {
		cfg.Fraud.InvoicesHistoryCount = v
	}
	if v, ok := lookupInt("SUSPICIOUS_INVOICES_COUNT"); ok {
		cfg.Fraud.SuspiciousInvoicesCount = v
	}
	if v, ok := lookupInt("SUSPICIOUS_TIMEFRAME_HOURS"); ok {
		cfg.Fraud.SuspiciousTimeframeHours = v
	}
	if v, ok := lookupInt("HIGH_VALUE_CENTS"); ok {
		cfg.Fraud.HighValueCents = int64(v)
	}
	if v := getEnv("SUSPICIOUS_ACCOUNT_EXPRESSION", ""); v != "" {
		cfg.Fraud.SuspiciousAccountExpression = v
	}
	if v, ok := lookupInt("PROCESSING_TIMEOUT_SECONDS"); ok {
		cfg.ProcessingTimeoutSeconds = v
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func lookupInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func lookupFloat(key string) (float64, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
