// Package report implements the Reporter fan-out sinks the Coordinator
// drives: a zap-backed console sink and a Prometheus metrics sink backed by
// a MySQL audit log. The teacher piped a bare reportChan chan string into a
// for-range println loop in cmd/main.go; this is the typed, pluggable
// replacement spec §4.6 calls for.
package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	lb "github.com/liquidation-bot/liquidation-bot"
	"github.com/liquidation-bot/liquidation-bot/internal/db"
)

// Reporter consumes one Event at a time. Report must not block the
// Coordinator's fan-out for long; a Reporter that needs to do slow work
// (a DB write, an HTTP push) should do it inline but fast, or drop it.
type Reporter interface {
	Report(e lb.Event)
}

// ConsoleReporter logs every event at an appropriate level via zap,
// grounded on the teacher's for-range-over-reportChan println loop in
// cmd/main.go, generalized from an untyped string line to structured
// fields per event kind.
type ConsoleReporter struct {
	logger *zap.Logger
}

// NewConsoleReporter constructs a ConsoleReporter.
func NewConsoleReporter(logger *zap.Logger) *ConsoleReporter {
	return &ConsoleReporter{logger: logger}
}

// Report logs e. Fetch/check progress logs at Info, TraderLiquidated logs
// at Info with the tx hash, Error logs at Warn (fatal-vs-transient
// classification is the Coordinator's job, not the Reporter's), and
// BotStopped logs at Info.
func (r *ConsoleReporter) Report(e lb.Event) {
	switch e.Kind {
	case lb.EventTradersFetched:
		p := e.TradersFetched
		r.logger.Info("position tracker updated",
			zap.Int("openPositions", p.Count),
			zap.Bool("historyComplete", p.HistoryComplete),
			zap.Uint64("historyBlocksLeft", p.HistoryBlocksLeft),
		)
	case lb.EventTradersChecked:
		r.logger.Info("liquidatability check chunk",
			zap.Int("liquidatable", len(e.TradersChecked.Liquidatable)),
		)
	case lb.EventTraderLiquidated:
		p := e.TraderLiquidated
		r.logger.Info("trader liquidated",
			zap.String("trader", p.Trader.String()),
			zap.String("txHash", p.TxHash),
		)
	case lb.EventError:
		r.logger.Warn("pipeline error",
			zap.String("kind", e.Error.Kind),
			zap.Error(e.Error.Cause),
		)
	case lb.EventBotStopped:
		r.logger.Info("bot stopped")
	default:
		r.logger.Warn("unknown event kind", zap.Int("kind", int(e.Kind)))
	}
}

// MetricsReporter exports Prometheus counters/gauges for every event kind
// and, for TraderLiquidated and liquidation-kind Error events, appends a
// row to the MySQL audit log
// via internal/db.MySQLRecorder — the teacher's AssetSnapshotRecord table
// repurposed as a liquidation-outcome ledger rather than a second source of
// pipeline truth (the bot never reads it back, spec §1 non-goal).
type MetricsReporter struct {
	recorder *db.MySQLRecorder
	logger   *zap.Logger

	openPositions      prometheus.Gauge
	historyBlocksLeft  prometheus.Gauge
	liquidatableTotal  prometheus.Counter
	liquidationsTotal  prometheus.Counter
	errorsTotal        *prometheus.CounterVec
}

// NewMetricsReporter registers the bot's counters/gauges against registerer
// (typically prometheus.DefaultRegisterer) and wires recorder as the audit
// sink. recorder may be nil, in which case liquidation outcomes are only
// exported as metrics, never persisted — useful for tests.
func NewMetricsReporter(registerer prometheus.Registerer, recorder *db.MySQLRecorder, logger *zap.Logger) *MetricsReporter {
	m := &MetricsReporter{
		recorder: recorder,
		logger:   logger,
		openPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liquidation_bot",
			Name:      "open_positions",
			Help:      "Number of traders currently believed to hold an open position.",
		}),
		historyBlocksLeft: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "liquidation_bot",
			Name:      "history_blocks_left",
			Help:      "Blocks remaining in the Position Tracker's backward history scan.",
		}),
		liquidatableTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liquidation_bot",
			Name:      "liquidatable_traders_total",
			Help:      "Cumulative count of traders found liquidatable across all checker chunks.",
		}),
		liquidationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "liquidation_bot",
			Name:      "liquidations_total",
			Help:      "Cumulative count of successful liquidations.",
		}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "liquidation_bot",
			Name:      "errors_total",
			Help:      "Cumulative count of pipeline errors, by kind.",
		}, []string{"kind"}),
	}

	registerer.MustRegister(m.openPositions, m.historyBlocksLeft, m.liquidatableTotal, m.liquidationsTotal, m.errorsTotal)
	return m
}

// Report updates the relevant metric for e, and for TraderLiquidated events
// and "liquidation" Error events whose cause is a *lb.LiquidationError also
// appends an audit row if a recorder is configured. A failed
// audit write is logged, not propagated — the metric itself already
// recorded the event, and the Coordinator has no recovery action for a
// failed audit write beyond what already happens on the next restart.
func (m *MetricsReporter) Report(e lb.Event) {
	switch e.Kind {
	case lb.EventTradersFetched:
		p := e.TradersFetched
		m.openPositions.Set(float64(p.Count))
		m.historyBlocksLeft.Set(float64(p.HistoryBlocksLeft))
	case lb.EventTradersChecked:
		m.liquidatableTotal.Add(float64(len(e.TradersChecked.Liquidatable)))
	case lb.EventTraderLiquidated:
		m.liquidationsTotal.Inc()
		if m.recorder != nil {
			if err := m.recorder.RecordLiquidated(e.TraderLiquidated.Trader, e.TraderLiquidated.TxHash); err != nil {
				m.logger.Warn("audit write failed", zap.Error(err))
			}
		}
	case lb.EventError:
		m.errorsTotal.WithLabelValues(e.Error.Kind).Inc()
		if m.recorder != nil && e.Error.Kind == "liquidation" {
			trader, ok := liquidationErrorTrader(e.Error.Cause)
			if ok {
				if err := m.recorder.RecordError(trader, e.Error.Cause); err != nil {
					m.logger.Warn("audit write failed", zap.Error(err))
				}
			}
		}
	}
}

// liquidationErrorTrader extracts the trader a LiquidationError names, so
// MetricsReporter can attribute the audit row without the Liquidator
// needing to carry the trader address in ErrorPayload itself (only
// LiquidationError does; FetchError/CheckError have no single trader).
func liquidationErrorTrader(cause error) (lb.Address, bool) {
	if le, ok := cause.(*lb.LiquidationError); ok {
		return le.Trader, true
	}
	return lb.Address{}, false
}

// FanOut broadcasts one Event to every configured Reporter, recovering from
// any individual Reporter panic so a crashing sink never takes down the
// pipeline (spec §4.6). A panicking reporter's crash is logged via logger
// and, once e has been delivered to every reporter, surfaced to the other
// reporters as a nested "reporter" Error event; the crashed reporter itself
// is skipped for the remainder of this call, not permanently — it gets
// another chance on the next event.
func FanOut(reporters []Reporter, e lb.Event, logger *zap.Logger) {
	type crashed struct {
		r     Reporter
		cause error
	}
	var crashes []crashed
	for _, r := range reporters {
		if crash := reportSafely(r, e); crash != nil {
			logger.Error("reporter panicked", zap.Error(crash))
			crashes = append(crashes, crashed{r: r, cause: crash})
		}
	}
	for _, c := range crashes {
		nested := lb.Event{Kind: lb.EventError, Error: &lb.ErrorPayload{Kind: "reporter", Cause: c.cause}}
		for _, other := range reporters {
			if other != c.r {
				reportSafely(other, nested)
			}
		}
	}
}

// reportSafely calls r.Report(e), converting any panic into a returned
// error instead of letting it unwind into the Coordinator's goroutine.
func reportSafely(r Reporter, e lb.Event) (crash error) {
	defer func() {
		if rec := recover(); rec != nil {
			crash = fmt.Errorf("reporter panicked: %v", rec)
		}
	}()
	r.Report(e)
	return nil
}
