package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genied_tasks_submitted_total",
			Help: "Total number of tasks submitted.",
		},
		[]string{"kind"},
	)

	tasksFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genied_tasks_finished_total",
			Help: "Total number of tasks that reached a terminal state.",
		},
		[]string{"kind", "status"},
	)

	tasksActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "genied_tasks_active",
			Help: "Number of tasks currently pending or running.",
		},
	)
)

func init() {
	prometheus.MustRegister(tasksSubmitted)
	prometheus.MustRegister(tasksFinished)
	prometheus.MustRegister(tasksActive)
}
