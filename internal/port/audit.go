package port

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(subject, action, resource, resourceID, details, ip, userAgent string) error
}
