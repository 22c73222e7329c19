// Package prometheus renders providerAuth engine metrics in the Prometheus
// text exposition format.
//
// [NewPrometheusExporter] wraps an [providerAuth.Engine] and serves its
// counters and latency histograms from an [http.Handler]. Login, refresh and
// lockout outcomes are one family each, labelled by outcome and reason:
//
//	providerauth_login_attempts_total{outcome="locked",reason="account_locked"} 2
//
// Audit delivery per ledger outcome is providerauth_audit_events_total.
//
// # What this package must NOT do
//
//   - Register anything in a global registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
