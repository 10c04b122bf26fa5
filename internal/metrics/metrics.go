package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gymdesk_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_booking_transitions_total",
			Help: "Booking status transitions",
		},
		[]string{"status"},
	)

	SlotCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymdesk_slot_cancellations_total",
			Help: "Total number of cancelled schedule slots",
		},
	)

	CascadedCancellationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gymdesk_cascaded_booking_cancellations_total",
			Help: "Bookings cancelled because their slot was cancelled",
		},
	)

	QRVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_qr_verifications_total",
			Help: "QR verifications by outcome",
		},
		[]string{"outcome"},
	)

	CheckInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_check_ins_total",
			Help: "Recorded check-ins",
		},
		[]string{"method"},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gymdesk_events_total",
			Help: "Domain events by type and delivery status",
		},
		[]string{"type", "status"},
	)

	EventQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gymdesk_event_queue_length",
			Help: "Current length of the event outbox",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(outcome string) {
	BookingsTotal.WithLabelValues(outcome).Inc()
}

func RecordBookingTransition(status string) {
	BookingTransitionsTotal.WithLabelValues(status).Inc()
}

func RecordSlotCancellation(cascaded int) {
	SlotCancellationsTotal.Inc()
	CascadedCancellationsTotal.Add(float64(cascaded))
}

func RecordQRVerification(outcome string) {
	QRVerificationsTotal.WithLabelValues(outcome).Inc()
}

func RecordCheckIn(method string) {
	CheckInsTotal.WithLabelValues(method).Inc()
}

func RecordEvent(eventType, status string) {
	EventsTotal.WithLabelValues(eventType, status).Inc()
}
