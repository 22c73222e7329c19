package internaldefs

import (
	"strings"

	providerAuth "github.com/MrEthical07/providerAuth"
	"github.com/MrEthical07/providerAuth/store"
)

// CounterDef binds an engine counter to its exported name.
type CounterDef struct {
	ID   providerAuth.MetricID
	Name string
	Help string
}

// HistogramDef binds an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   providerAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists the unlabelled counters in render order.
var CounterDefs = []CounterDef{
	{ID: providerAuth.MetricSessionCreated, Name: "providerauth_session_created_total", Help: "Refresh tokens issued by login."},
	{ID: providerAuth.MetricLogout, Name: "providerauth_logout_total", Help: "Refresh tokens revoked by logout."},
	{ID: providerAuth.MetricLogoutAll, Name: "providerauth_logout_all_total", Help: "Logout-all operations."},
	{ID: providerAuth.MetricAccountDisabled, Name: "providerauth_account_disabled_total", Help: "Account disable operations."},
	{ID: providerAuth.MetricRegistrationLimited, Name: "providerauth_registration_limited_total", Help: "Registration requests over the per-IP budget."},
	{ID: providerAuth.MetricPasswordUpgraded, Name: "providerauth_password_upgraded_total", Help: "Password hashes re-derived on login."},
	{ID: providerAuth.MetricInternalError, Name: "providerauth_internal_error_total", Help: "Operations that failed on a store or codec error."},
}

// Label names shared by every family.
const (
	LabelOutcome = "outcome"
	LabelReason  = "reason"
)

// ReasonNone is the reason label of successful series.
const ReasonNone = "none"

// SeriesDef binds an engine counter to one outcome/reason pair of a family.
type SeriesDef struct {
	ID      providerAuth.MetricID
	Outcome string
	Reason  string
}

// FamilyDef is a counter exported as one name with outcome and reason labels.
type FamilyDef struct {
	Name   string
	Help   string
	Series []SeriesDef
}

// Outcome labels follow the login ledger's outcome column, lower-cased.
var (
	outcomeSuccess          = label(string(store.OutcomeSuccess))
	outcomeFailed           = label(string(store.OutcomeFailed))
	outcomeLocked           = label(string(store.OutcomeLocked))
	outcomeRateLimited      = label(string(store.OutcomeRateLimited))
	outcomeAccountDisabled  = label(string(store.OutcomeAccountDisabled))
	outcomeEmailNotVerified = label(string(store.OutcomeEmailNotVerified))
)

// Outcomes outside the ledger.
const (
	outcomeRejected = "rejected"
	outcomeError    = "error"
	outcomeUnlocked = "unlocked"
)

// FamilyDefs lists the labelled login, refresh and lockout families.
var FamilyDefs = []FamilyDef{
	{
		Name: "providerauth_login_attempts_total",
		Help: "Login attempts by ledger outcome and failure reason.",
		Series: []SeriesDef{
			{ID: providerAuth.MetricLoginSuccess, Outcome: outcomeSuccess, Reason: ReasonNone},
			{ID: providerAuth.MetricLoginUnknownAccount, Outcome: outcomeFailed, Reason: label(string(store.ReasonAccountNotFound))},
			{ID: providerAuth.MetricLoginBadPassword, Outcome: outcomeFailed, Reason: label(string(store.ReasonInvalidPassword))},
			{ID: providerAuth.MetricLoginLocked, Outcome: outcomeLocked, Reason: label(string(store.ReasonAccountLocked))},
			{ID: providerAuth.MetricLoginDisabled, Outcome: outcomeAccountDisabled, Reason: label(string(store.ReasonAccountDisabled))},
			{ID: providerAuth.MetricLoginUnverified, Outcome: outcomeEmailNotVerified, Reason: label(string(store.ReasonEmailNotVerified))},
			{ID: providerAuth.MetricLoginRateLimited, Outcome: outcomeRateLimited, Reason: label(string(store.ReasonRateLimited))},
			{ID: providerAuth.MetricLoginInvalidRequest, Outcome: outcomeRejected, Reason: "invalid_request"},
			{ID: providerAuth.MetricSessionLimit, Outcome: outcomeRejected, Reason: "session_limit"},
			{ID: providerAuth.MetricLoginInternal, Outcome: outcomeError, Reason: "internal"},
		},
	},
	{
		Name: "providerauth_refresh_total",
		Help: "Refresh requests by outcome and failure reason.",
		Series: []SeriesDef{
			{ID: providerAuth.MetricRefreshSuccess, Outcome: outcomeSuccess, Reason: ReasonNone},
			{ID: providerAuth.MetricRefreshInvalidToken, Outcome: outcomeFailed, Reason: "invalid_token"},
			{ID: providerAuth.MetricRefreshPrincipalRejected, Outcome: outcomeFailed, Reason: "principal_rejected"},
			{ID: providerAuth.MetricRefreshReuseDetected, Outcome: outcomeFailed, Reason: "reuse_detected"},
			{ID: providerAuth.MetricRefreshInternal, Outcome: outcomeError, Reason: "internal"},
		},
	},
	{
		Name: "providerauth_lockout_events_total",
		Help: "Account lockout transitions and rejections.",
		Series: []SeriesDef{
			{ID: providerAuth.MetricLockoutStarted, Outcome: outcomeLocked, Reason: label(string(store.ReasonTooManyAttempts))},
			{ID: providerAuth.MetricLoginLocked, Outcome: outcomeRejected, Reason: label(string(store.ReasonAccountLocked))},
			{ID: providerAuth.MetricAccountUnlocked, Outcome: outcomeUnlocked, Reason: "admin_unlock"},
		},
	},
}

// AuditFamily is the name of the audit delivery family. Its series carry an
// outcome label and a delivery label of "delivered" or "dropped".
const (
	AuditFamily     = "providerauth_audit_events_total"
	AuditFamilyHelp = "Audit events by ledger outcome and delivery result."
	LabelDelivery   = "delivery"
)

// AuditOutcomes lists the outcomes the audit family is zero-filled for.
var AuditOutcomes = []store.Outcome{
	store.OutcomeSuccess,
	store.OutcomeFailed,
	store.OutcomeLocked,
	store.OutcomeRateLimited,
	store.OutcomeAccountDisabled,
	store.OutcomeEmailNotVerified,
}

// OutcomeLabel is the label value exported for o.
func OutcomeLabel(o store.Outcome) string { return label(string(o)) }

func label(v string) string { return strings.ToLower(v) }

// HistogramDefs lists the exported latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: providerAuth.MetricLoginLatency, Name: "providerauth_login_latency_seconds", Help: "Login latency histogram."},
	{ID: providerAuth.MetricValidateLatency, Name: "providerauth_validate_latency_seconds", Help: "Access-token validation latency histogram."},
}

// HistogramBounds are the Prometheus le labels of the engine buckets.
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

// HistogramBoundSuffix are metric-name-safe forms of HistogramBounds.
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

// NormalizeBuckets copies raw into a fixed array, zero-filling missing buckets.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
