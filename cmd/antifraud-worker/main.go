// cmd/antifraud-worker/main.go
package main

import (
	"context"
	"net/http"
	"time"

	"antifraud/internal/metrics"
	"antifraud/internal/pkg/bootstrap"
	"antifraud/internal/pkg/logger"
	"antifraud/internal/pkg/mq"
	pkgredis "antifraud/internal/pkg/redis"
	"antifraud/internal/pkg/tracing"
	"antifraud/internal/service/fraud/application"
	"antifraud/internal/service/fraud/domain"
	"antifraud/internal/service/fraud/domain/rule"
	"antifraud/internal/service/fraud/infrastructure"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const serviceName = "antifraud-worker"

// main 是组装根：创建并装配所有依赖，然后把控制权交给 bootstrap。
func main() {
	cfg, err := bootstrap.Load()
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.Init(cfg.ServiceName, cfg.LogLevel)
	workerID := uuid.NewString()
	log := logger.L().With().Str("worker_id", workerID).Logger()

	tp, err := tracing.InitTracerProvider(cfg.ServiceName, cfg.Jaeger.Endpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracer provider")
	}
	tracer := otel.Tracer(cfg.ServiceName)

	// 存储：台账归本服务所有并在启动时迁移；invoices 表只读
	db, err := gorm.Open(gormmysql.Open(cfg.Database.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	ledger := infrastructure.NewGormEventLedger(db)
	if err := ledger.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate processed_events table")
	}
	history := infrastructure.NewGormHistoryRepository(db,
		cfg.Fraud.InvoicesHistoryCount,
		cfg.Fraud.SuspiciousTimeframeHours,
		cfg.Fraud.HighValueCents,
	)

	// Redis 缓存可选：未配置时流水线直接退化为纯 DB 认领
	var cache domain.CompletedEventCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Addr != "" {
		redisClient, err = pkgredis.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		cache = infrastructure.NewRedisCompletedEventCache(redisClient,
			time.Duration(cfg.Redis.CompletedTTLSeconds)*time.Second)
	}

	engine, err := rule.NewAggregate(rule.Config{
		VariationPercentage:         cfg.Fraud.SuspiciousVariationPercentage,
		HistoryWindow:               cfg.Fraud.InvoicesHistoryCount,
		SuspiciousCount:             cfg.Fraud.SuspiciousInvoicesCount,
		TimeframeHours:              cfg.Fraud.SuspiciousTimeframeHours,
		HighValueCents:              cfg.Fraud.HighValueCents,
		SuspiciousAccountExpression: cfg.Fraud.SuspiciousAccountExpression,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build fraud rule engine")
	}

	recorder := metrics.NewRecorder()

	writer := mq.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.ResultTopic)
	reader := mq.NewKafkaReader(cfg.Kafka.Brokers, cfg.Kafka.PendingTopic, cfg.Kafka.GroupID)

	publisher := infrastructure.NewKafkaResultPublisher(writer, tracer)
	appSvc := application.NewFraudApplicationService(
		ledger, history, publisher, cache, engine, recorder, tracer,
		time.Duration(cfg.ProcessingTimeoutSeconds)*time.Second,
	)
	consumer := infrastructure.NewPendingInvoiceConsumer(reader, appSvc)

	log.Info().
		Strs("brokers", cfg.Kafka.Brokers).
		Str("pending_topic", cfg.Kafka.PendingTopic).
		Str("result_topic", cfg.Kafka.ResultTopic).
		Msg("anti-fraud worker starting")

	err = bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: cfg.ServiceName,
		Port:        cfg.HTTPPort,
		RegisterHandlers: func(mux *http.ServeMux) {
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			metrics.RegisterHandlers(mux, recorder)
		},
		Run: consumer.Run,
		OnShutdown: []func(ctx context.Context){
			func(ctx context.Context) {
				if err := reader.Close(); err != nil {
					log.Error().Err(err).Msg("error closing kafka reader")
				}
			},
			func(ctx context.Context) {
				if err := writer.Close(); err != nil {
					log.Error().Err(err).Msg("error closing kafka writer")
				}
			},
			func(ctx context.Context) {
				if redisClient != nil {
					if err := redisClient.Close(); err != nil {
						log.Error().Err(err).Msg("error closing redis client")
					}
				}
			},
			func(ctx context.Context) {
				// 关闭 TracerProvider，确保缓冲中的 Span 全部发出
				if err := tp.Shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down tracer provider")
				}
			},
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("worker exited with error")
	}
}
