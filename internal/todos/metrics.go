package todos

import "github.com/prometheus/client_golang/prometheus"

var mutationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "todo_mutations_total",
		Help: "Todo mutations by operation and outcome",
	},
	[]string{"op", "outcome"},
)

func init() {
	prometheus.MustRegister(mutationsTotal)
}
