package providerAuth

import (
	"context"

	internalaudit "github.com/MrEthical07/providerAuth/internal/audit"
)

const (
	auditEventLoginSuccess      = internalaudit.EventLoginSuccess
	auditEventLoginFailure      = internalaudit.EventLoginFailure
	auditEventLoginRateLimited  = internalaudit.EventLoginRateLimited
	auditEventSessionLimit      = internalaudit.EventSessionLimit
	auditEventAccountLocked     = internalaudit.EventAccountLocked
	auditEventRefreshSuccess    = internalaudit.EventRefreshSuccess
	auditEventRefreshInvalid    = internalaudit.EventRefreshInvalid
	auditEventRefreshReuse      = internalaudit.EventRefreshReuse
	auditEventLogoutSession     = internalaudit.EventLogoutSession
	auditEventLogoutAll         = internalaudit.EventLogoutAll
	auditEventAccountUnlocked   = internalaudit.EventAccountUnlocked
	auditEventAccountStatus     = internalaudit.EventAccountStatus
	auditEventRegistrationLimit = internalaudit.EventRegistrationLimited
	auditEventPasswordUpgraded  = internalaudit.EventPasswordUpgraded
)

type auditSubject struct {
	principalID string
	identifier  string
	ip          string
	userAgent   string
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	subject auditSubject,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}
	if subject.ip == "" {
		subject.ip = ClientIPFromContext(ctx)
	}
	if subject.userAgent == "" {
		subject.userAgent = userAgentFromContext(ctx)
	}

	event := AuditEvent{
		Timestamp:   e.now().UTC(),
		EventType:   eventType,
		PrincipalID: subject.principalID,
		Identifier:  subject.identifier,
		IP:          subject.ip,
		UserAgent:   subject.userAgent,
		Success:     success,
		Metadata:    metadata,
	}
	if err != nil {
		event.Error = KindOf(err).Code()
	}

	e.audit.Emit(ctx, event)
}
