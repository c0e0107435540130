package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LotteryMetrics tracks pool activity: principal flow, draw lifecycle
// outcomes and the currently projected prize.
type LotteryMetrics struct {
	deposits       prometheus.Counter
	withdrawals    prometheus.Counter
	drawsStarted   prometheus.Counter
	drawsSettled   prometheus.Counter
	drawsRecovered prometheus.Counter
	epochsSkipped  prometheus.Counter
	totalStaked    prometheus.Gauge
	projectedPrize prometheus.Gauge
}

var (
	lotteryOnce     sync.Once
	lotteryRegistry *LotteryMetrics
)

// Lottery returns the lazily-initialised lottery metrics registry.
func Lottery() *LotteryMetrics {
	lotteryOnce.Do(func() {
		lotteryRegistry = &LotteryMetrics{
			deposits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lottery_deposits_total",
				Help: "Count of accepted deposits.",
			}),
			withdrawals: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lottery_withdrawals_total",
				Help: "Count of accepted withdrawals.",
			}),
			drawsStarted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lottery_draws_started_total",
				Help: "Count of prize draws opened with a randomness request.",
			}),
			drawsSettled: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lottery_draws_settled_total",
				Help: "Count of prize draws settled with a winner.",
			}),
			drawsRecovered: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lottery_draws_recovered_total",
				Help: "Count of stalled draws abandoned after the grace period.",
			}),
			epochsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lottery_epochs_skipped_total",
				Help: "Count of epochs finalized without a draw due to zero yield.",
			}),
			totalStaked: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lottery_total_staked",
				Help: "Total outstanding principal staked in the pool.",
			}),
			projectedPrize: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lottery_projected_prize",
				Help: "Currently projected prize were awarding to start now.",
			}),
		}
		prometheus.MustRegister(
			lotteryRegistry.deposits,
			lotteryRegistry.withdrawals,
			lotteryRegistry.drawsStarted,
			lotteryRegistry.drawsSettled,
			lotteryRegistry.drawsRecovered,
			lotteryRegistry.epochsSkipped,
			lotteryRegistry.totalStaked,
			lotteryRegistry.projectedPrize,
		)
	})
	return lotteryRegistry
}

// RecordDeposit increments the deposit counter.
func (m *LotteryMetrics) RecordDeposit() {
	if m == nil {
		return
	}
	m.deposits.Inc()
}

// RecordWithdrawal increments the withdrawal counter.
func (m *LotteryMetrics) RecordWithdrawal() {
	if m == nil {
		return
	}
	m.withdrawals.Inc()
}

// RecordDrawStarted increments the opened-draw counter.
func (m *LotteryMetrics) RecordDrawStarted() {
	if m == nil {
		return
	}
	m.drawsStarted.Inc()
}

// RecordDrawSettled increments the settled-draw counter.
func (m *LotteryMetrics) RecordDrawSettled() {
	if m == nil {
		return
	}
	m.drawsSettled.Inc()
}

// RecordDrawRecovered increments the recovered-draw counter.
func (m *LotteryMetrics) RecordDrawRecovered() {
	if m == nil {
		return
	}
	m.drawsRecovered.Inc()
}

// RecordEpochSkipped increments the zero-yield skip counter.
func (m *LotteryMetrics) RecordEpochSkipped() {
	if m == nil {
		return
	}
	m.epochsSkipped.Inc()
}

// SetTotalStaked records the outstanding principal.
func (m *LotteryMetrics) SetTotalStaked(v *big.Int) {
	if m == nil || v == nil {
		return
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	m.totalStaked.Set(f)
}

// SetProjectedPrize records the currently projected prize.
func (m *LotteryMetrics) SetProjectedPrize(v *big.Int) {
	if m == nil || v == nil {
		return
	}
	f, _ := new(big.Float).SetInt(v).Float64()
	m.projectedPrize.Set(f)
}
