package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for BarterLedger.
type Metrics struct {
	// --- Trade lifecycle ---
	TradesCreated   prometheus.Counter
	TradesCompleted prometheus.Counter
	TradesDenied    prometheus.Counter
	TradesExpired   prometheus.Counter
	TradesBargained prometheus.Counter
	TradeOpErrors   *prometheus.CounterVec
	TradeOpDuration *prometheus.HistogramVec
	PendingTrades   prometheus.Gauge
	TradeLocks      prometheus.Gauge

	// --- Exchange executor ---
	ExchangeRollbacks prometheus.Counter
	VerifyMismatches  prometheus.Counter
	ExchangeDuration  prometheus.Histogram

	// --- Ingestion ---
	CommandsReceived   *prometheus.CounterVec
	CommandsRejected   *prometheus.CounterVec
	CommandDuplicates  prometheus.Counter
	DedupLRUSize       prometheus.Gauge
	DedupLRUEvictions  prometheus.Counter
	NotificationsSent  prometheus.Counter
	NotificationDrops  prometheus.Counter

	// --- Ledger ---
	LedgerEntries      prometheus.Counter
	LedgerWriteErrors  prometheus.Counter
	ExceptionalFlushes prometheus.Counter

	// --- Persistence (Postgres archive) ---
	PersistOutcomesWritten prometheus.Counter
	PersistBatchSize       prometheus.Histogram
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	PersistRetry           prometheus.Counter

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	opBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		TradesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_trades_created_total",
			Help: "Trades created",
		}),

		TradesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_trades_completed_total",
			Help: "Trades completed (exchange executed and verified)",
		}),

		TradesDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_trades_denied_total",
			Help: "Trades denied",
		}),

		TradesExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_trades_expired_total",
			Help: "Trades expired (lazy check or sweeper)",
		}),

		TradesBargained: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_trades_bargained_total",
			Help: "Successful bargain counter-offers",
		}),

		TradeOpErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "barter_trade_op_errors_total",
			Help: "Trade operation failures",
		}, []string{"op", "reason"}),

		TradeOpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barter_trade_op_duration_seconds",
			Help:    "Time per trade operation",
			Buckets: opBuckets,
		}, []string{"op"}),

		PendingTrades: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "barter_pending_trades",
			Help: "Trades currently in the pending map",
		}),

		TradeLocks: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "barter_trade_locks",
			Help: "Entries in the trade lock table",
		}),

		ExchangeRollbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_exchange_rollbacks_total",
			Help: "Failed transfers restored from snapshot",
		}),

		VerifyMismatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_verify_mismatches_total",
			Help: "Post-trade verification disagreements",
		}),

		ExchangeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "barter_exchange_duration_seconds",
			Help:    "Exchange execution time",
			Buckets: opBuckets,
		}),

		CommandsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "barter_commands_received_total",
			Help: "Commands consumed from NATS",
		}, []string{"type"}),

		CommandsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "barter_commands_rejected_total",
			Help: "Commands rejected (parse, precheck, policy)",
		}, []string{"type", "reason"}),

		CommandDuplicates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_command_duplicates_total",
			Help: "Redelivered commands caught by dedup",
		}),

		DedupLRUSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "barter_dedup_lru_size",
			Help: "Current LRU occupancy",
		}),

		DedupLRUEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_dedup_lru_evictions_total",
			Help: "LRU evictions",
		}),

		NotificationsSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_notifications_sent_total",
			Help: "Actor notifications published",
		}),

		NotificationDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_notification_drops_total",
			Help: "Notifications dropped due to full publish channel",
		}),

		LedgerEntries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_ledger_entries_total",
			Help: "History entries recorded",
		}),

		LedgerWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_ledger_write_errors_total",
			Help: "Durable log append failures (swallowed)",
		}),

		ExceptionalFlushes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_exceptional_flushes_total",
			Help: "Exceptional-trade file persists",
		}),

		PersistOutcomesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_persist_outcomes_written_total",
			Help: "Trade outcomes written to Postgres",
		}),

		PersistBatchSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "barter_persist_batch_size",
			Help:    "Outcomes per batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "barter_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "barter_persist_errors_total",
			Help: "Persistence errors",
		}, []string{"error_type"}),

		PersistRetry: promauto.NewCounter(prometheus.CounterOpts{
			Name: "barter_persist_retry_total",
			Help: "Persistence retries",
		}),

		QueryRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "barter_query_requests_total",
			Help: "Query requests",
		}, []string{"endpoint", "status"}),

		QueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barter_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),
	}
}
