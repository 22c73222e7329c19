package providerAuth

import (
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/providerAuth/internal/audit"
)

// TokenTypeBearer is the token_type reported with every issued pair.
const TokenTypeBearer = "Bearer"

// LoginRequest is the input of [Engine.Login]. IPAddress and UserAgent fall
// back to the values attached with [WithClientIP] and [WithUserAgent].
type LoginRequest struct {
	Identifier string
	Password   string
	RememberMe bool
	DeviceInfo string
	IPAddress  string
	UserAgent  string
}

// PrincipalSummary is the non-secret view of a principal returned on login.
type PrincipalSummary struct {
	ID                 string
	Email              string
	FirstName          string
	LastName           string
	FullName           string
	Role               string
	Specialization     string
	VerificationStatus string
	LoginCount         int
	LastLogin          time.Time
}

// TokenPair is an issued access and refresh token with their expiries.
// ExpiresIn and RefreshExpiresIn are whole seconds from issuance.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	TokenType        string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	ExpiresIn        int64
	RefreshExpiresIn int64
}

// LoginResult is returned by a successful [Engine.Login].
type LoginResult struct {
	TokenPair
	Principal PrincipalSummary
}

// RefreshResult is returned by a successful [Engine.Refresh].
type RefreshResult struct {
	TokenPair
}

// AccessClaims is the verified content of an access token.
type AccessClaims struct {
	PrincipalID        string
	TokenID            string
	Email              string
	Role               string
	FirstName          string
	LastName           string
	Specialization     string
	VerificationStatus string
	IssuedAt           time.Time
	ExpiresAt          time.Time
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditStats counts dispatched audit events per ledger outcome.
type AuditStats = internalaudit.Stats

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink is an [AuditSink] that logs events through log/slog.
type SlogSink = internalaudit.SlogSink

func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
