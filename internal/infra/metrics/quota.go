package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(quotaReservationsTotal, quotaResetsTotal) }

var (
	quotaReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_reservations_total",
			Help: "Quota reservations by result.",
		},
		[]string{"result"}, // 'granted', 'exceeded', 'error'
	)

	quotaResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "quota_resets_total",
			Help: "Users whose request counter was reset by the reset worker.",
		},
	)
)

func IncQuotaReservation(result string) {
	quotaReservationsTotal.WithLabelValues(norm(result)).Inc()
}

func IncQuotaResets(count int) {
	quotaResetsTotal.Add(float64(count))
}
