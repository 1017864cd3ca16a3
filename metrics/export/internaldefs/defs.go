// Package internaldefs holds the shared metric name table consumed by the
// Prometheus and OpenTelemetry exporters. It is internal plumbing; import
// one of the exporter packages instead.
package internaldefs

import (
	authkit "github.com/quillbox/authkit"
)

type CounterDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   authkit.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authkit.MetricRegisterSuccess, Name: "authkit_register_success_total", Help: "Accounts created."},
	{ID: authkit.MetricRegisterDuplicate, Name: "authkit_register_duplicate_total", Help: "Registrations rejected for an existing email."},
	{ID: authkit.MetricRegisterFailure, Name: "authkit_register_failure_total", Help: "Registrations rejected for any other reason."},
	{ID: authkit.MetricLoginSuccess, Name: "authkit_login_success_total", Help: "Successful login attempts."},
	{ID: authkit.MetricLoginFailure, Name: "authkit_login_failure_total", Help: "Failed login attempts."},
	{ID: authkit.MetricLogout, Name: "authkit_logout_total", Help: "Logout operations."},
	{ID: authkit.MetricSessionCheck, Name: "authkit_session_check_total", Help: "Session check lookups."},
	{ID: authkit.MetricTokenInvalid, Name: "authkit_token_invalid_total", Help: "Session tokens rejected at verification."},
	{ID: authkit.MetricVerificationRequest, Name: "authkit_email_verification_request_total", Help: "Email verification codes issued."},
	{ID: authkit.MetricVerificationSuccess, Name: "authkit_email_verification_success_total", Help: "Accounts verified."},
	{ID: authkit.MetricVerificationFailure, Name: "authkit_email_verification_failure_total", Help: "Rejected email verification attempts."},
	{ID: authkit.MetricResetRequest, Name: "authkit_password_reset_request_total", Help: "Password reset requests."},
	{ID: authkit.MetricResetCooldown, Name: "authkit_password_reset_cooldown_total", Help: "Reset requests rejected by the resend cooldown."},
	{ID: authkit.MetricResetConfirmSuccess, Name: "authkit_password_reset_confirm_success_total", Help: "Completed password resets."},
	{ID: authkit.MetricResetConfirmFailure, Name: "authkit_password_reset_confirm_failure_total", Help: "Rejected password reset confirmations."},
	{ID: authkit.MetricNotifyFailure, Name: "authkit_notify_failure_total", Help: "Notification sends that returned an error."},
	{ID: authkit.MetricInternalError, Name: "authkit_internal_error_total", Help: "Operations that surfaced an internal error."},
}

var HistogramDefs = []HistogramDef{
	{ID: authkit.MetricLoginLatency, Name: "authkit_login_latency_seconds", Help: "Login latency histogram."},
}

var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width
// the exporters render.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to the cumulative form the
// Prometheus exposition format expects.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
