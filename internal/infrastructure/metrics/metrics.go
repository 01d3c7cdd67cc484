package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Verification outcomes.
const (
	ResultSuccess   = "success"
	ResultInvalid   = "invalid"
	ResultExpired   = "expired"
	ResultMalformed = "malformed"
)

var (
	otpIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_otp_issued_total",
			Help: "Total number of one-time codes sent and stored",
		},
		[]string{"flow"},
	)

	otpVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_otp_verifications_total",
			Help: "Total number of code verification attempts by outcome",
		},
		[]string{"result"},
	)

	otpDeliveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_otp_delivery_failures_total",
			Help: "Total number of one-time codes that could not be delivered",
		},
		[]string{"flow"},
	)
)

// RecordOtpIssued counts a code issued by flow ("register" or "login").
func RecordOtpIssued(flow string) {
	otpIssuedTotal.WithLabelValues(flow).Inc()
}

// RecordVerification counts a verification attempt with the given result.
func RecordVerification(result string) {
	otpVerificationsTotal.WithLabelValues(result).Inc()
}

// RecordDeliveryFailure counts a failed code delivery by flow.
func RecordDeliveryFailure(flow string) {
	otpDeliveryFailuresTotal.WithLabelValues(flow).Inc()
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
