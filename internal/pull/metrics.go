package pull

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricPulls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gacha",
		Name:      "pulls_total",
		Help:      "Pulls by outcome (revealed, failed).",
	}, []string{"outcome"})
	metricRevealDelay = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gacha",
		Name:      "reveal_delay_seconds",
		Help:      "Time from pull start to reveal.",
		Buckets:   []float64{1, 2, 2.5, 3, 4, 5, 10, 30},
	})
	metricPromotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gacha",
		Name:      "promotions_total",
		Help:      "Grade promotion effects by kind (real, fake).",
	}, []string{"kind"})
)
