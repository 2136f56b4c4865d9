package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	modelState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "lsai",
			Subsystem: "model",
			Name:      "state",
			Help:      "1 for the current model lifecycle state, 0 otherwise",
		},
		[]string{"state"},
	)

	modelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lsai",
			Subsystem: "model",
			Name:      "loads_total",
			Help:      "Total model load attempts by result",
		},
		[]string{"result"},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lsai",
			Name:      "generations_total",
			Help:      "Total generation requests by result",
		},
		[]string{"result"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lsai",
			Name:      "generation_duration_seconds",
			Help:      "Duration of engine sampling in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

func init() {
	prometheus.MustRegister(modelState, modelLoadsTotal, generationsTotal, generationDuration)
}

var allStates = []State{StateUnloaded, StateLoading, StateLoaded, StateFailed}

func setStateGauge(cur State) {
	for _, st := range allStates {
		v := 0.0
		if st == cur {
			v = 1
		}
		modelState.WithLabelValues(string(st)).Set(v)
	}
}
