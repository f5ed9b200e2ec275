package metrics

import "github.com/prometheus/client_golang/prometheus"

// Booking exposes counters for the booking core.
type Booking struct {
	created    *prometheus.CounterVec
	conflicts  prometheus.Counter
	promotions *prometheus.CounterVec
}

func NewBooking(reg prometheus.Registerer) *Booking {
	m := &Booking{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "booking",
			Name:      "appointments_created_total",
			Help:      "Appointments created, by forced-conflict flag",
		}, []string{"forced"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "booking",
			Name:      "conflicts_total",
			Help:      "Booking attempts rejected because the slot was occupied",
		}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "waitlist",
			Name:      "promotions_total",
			Help:      "Waitlist promotion attempts, by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.created, m.conflicts, m.promotions)
	return m
}

func (m *Booking) ObserveCreated(forced bool) {
	if m == nil {
		return
	}
	label := "false"
	if forced {
		label = "true"
	}
	m.created.WithLabelValues(label).Inc()
}

func (m *Booking) ObserveConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Booking) ObservePromotion(outcome string) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(outcome).Inc()
}

// Notifications counts dispatch outcomes in the notify worker.
type Notifications struct {
	processed *prometheus.CounterVec
}

func NewNotifications(reg prometheus.Registerer) *Notifications {
	m := &Notifications{
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agenda",
			Subsystem: "notify",
			Name:      "processed_total",
			Help:      "Scheduled notifications processed, by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.processed)
	return m
}

func (m *Notifications) Observe(outcome string) {
	if m == nil {
		return
	}
	m.processed.WithLabelValues(outcome).Inc()
}
