package report

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	lb "github.com/liquidation-bot/liquidation-bot"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetricsReporter_TradersFetched(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsReporter(reg, nil, zap.NewNop())

	m.Report(lb.Event{Kind: lb.EventTradersFetched, TradersFetched: &lb.TradersFetchedPayload{
		Count: 7, HistoryComplete: true, HistoryBlocksLeft: 0,
	}})

	require.Equal(t, float64(7), gaugeValue(t, m.openPositions))
	require.Equal(t, float64(0), gaugeValue(t, m.historyBlocksLeft))
}

func TestMetricsReporter_TraderLiquidated_NoRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsReporter(reg, nil, zap.NewNop())

	trader := lb.AddressFromHex("0x00000000000000000000000000000000000003")
	m.Report(lb.Event{Kind: lb.EventTraderLiquidated, TraderLiquidated: &lb.TraderLiquidatedPayload{Trader: trader, TxHash: "0xabc"}})

	require.Equal(t, float64(1), counterValue(t, m.liquidationsTotal))
}

func TestMetricsReporter_Error(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsReporter(reg, nil, zap.NewNop())

	m.Report(lb.Event{Kind: lb.EventError, Error: &lb.ErrorPayload{Kind: "fetch", Cause: errors.New("boom")}})

	counter, err := m.errorsTotal.GetMetricWithLabelValues("fetch")
	require.NoError(t, err)
	require.Equal(t, float64(1), counterValue(t, counter))
}

type panickingReporter struct{}

func (panickingReporter) Report(lb.Event) { panic("reporter blew up") }

type recordingReporter struct {
	events []lb.Event
}

func (r *recordingReporter) Report(e lb.Event) { r.events = append(r.events, e) }

func TestFanOut_RecoversPanickingReporter(t *testing.T) {
	survivor := &recordingReporter{}
	reporters := []Reporter{panickingReporter{}, survivor}

	require.NotPanics(t, func() {
		FanOut(reporters, lb.Event{Kind: lb.EventBotStopped}, zap.NewNop())
	})

	require.Len(t, survivor.events, 2)
	require.Equal(t, lb.EventBotStopped, survivor.events[0].Kind)
	require.Equal(t, lb.EventError, survivor.events[1].Kind)
	require.Equal(t, "reporter", survivor.events[1].Error.Kind)
}

func TestFanOut_AllHealthy(t *testing.T) {
	a, b := &recordingReporter{}, &recordingReporter{}
	FanOut([]Reporter{a, b}, lb.Event{Kind: lb.EventBotStopped}, zap.NewNop())

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
}
