package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Инфраструктурные метрики, у всех есть метка service
var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route and status",
	}, []string{"service", "method", "path", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"service", "method", "path"})

	HttpRequestsInFlight = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_requests_in_flight",
		Help: "HTTP requests currently being served",
	}, []string{"service"})

	DbQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "PostgreSQL and MongoDB query latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"service", "operation", "table"})

	// state: idle | in_use
	DbConnectionsOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "db_connections_open",
		Help: "PostgreSQL pool connections by state",
	}, []string{"service", "state"})

	DbErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "db_errors_total",
		Help: "Failed database operations",
	}, []string{"service", "operation", "table"})

	RedisCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_cache_hits_total",
		Help: "Rating cache hits",
	}, []string{"service", "key_prefix"})

	RedisCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_cache_misses_total",
		Help: "Rating cache misses",
	}, []string{"service", "key_prefix"})

	RedisOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redis_operation_duration_seconds",
		Help:    "Redis command latency",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"service", "operation"})

	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redis_errors_total",
		Help: "Failed Redis commands",
	}, []string{"service", "operation"})

	KafkaMessagesProduced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_produced_total",
		Help: "Marketplace events written to Kafka",
	}, []string{"service", "topic"})

	KafkaMessagesConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_messages_consumed_total",
		Help: "Marketplace events processed by consumers",
	}, []string{"service", "topic", "group"})

	KafkaProduceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_produce_duration_seconds",
		Help:    "Kafka write latency",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"service", "topic"})

	KafkaConsumeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kafka_consume_duration_seconds",
		Help:    "Time to process one consumed event",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"service", "topic"})

	// operation: produce | fetch | decode | process | commit
	KafkaErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kafka_errors_total",
		Help: "Kafka failures by operation",
	}, []string{"service", "topic", "operation"})
)

// Бизнес-метрики маркетплейса
var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_orders_created_total",
		Help: "Orders accepted into PENDING",
	})

	OrdersAmount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_orders_amount_total",
		Help: "Sum of total_amount over created orders",
	})

	OrderTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_order_transitions_total",
		Help: "Committed order status transitions",
	}, []string{"from", "to"})

	StockRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_stock_rejections_total",
		Help: "Reservations refused for insufficient stock",
	})

	ReviewsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_reviews_created_total",
		Help: "Reviews submitted for moderation",
	}, []string{"reviewer_role"})

	// kind: review | message
	ModerationDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_moderation_decisions_total",
		Help: "Moderation decisions by content kind and flag",
	}, []string{"kind", "flag"})

	// trigger: review | event | reconcile
	RatingRecomputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_rating_recomputations_total",
		Help: "Farmer rating recomputations",
	}, []string{"trigger"})

	ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "marketplace_rating_reconcile_duration_seconds",
		Help:    "Duration of a full rating reconciliation pass",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
	})
)
