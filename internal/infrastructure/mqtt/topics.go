package mqtt

import "strings"

// Topics builds pgcore topic names under a prefix.
//
//	topics := mqtt.NewTopics("pgcore")
//	topics.Audit("grant", "revoke") // "pgcore/audit/grant/revoke"
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. Surrounding slashes are trimmed.
func NewTopics(prefix string) Topics {
	return Topics{prefix: strings.Trim(prefix, "/")}
}

// Status returns the retained online/offline topic.
//
// Example: pgcore/system/status
func (t Topics) Status() string {
	return t.prefix + "/system/status"
}

// Sync returns the topic for schema sync results.
//
// Example: pgcore/system/sync
func (t Topics) Sync() string {
	return t.prefix + "/system/sync"
}

// Audit returns the topic for one kind of audit entry. Empty segments
// become "unknown" so the topic never contains an empty level.
//
// Example: pgcore/audit/role/create
func (t Topics) Audit(entityType, action string) string {
	return t.prefix + "/audit/" + segment(entityType) + "/" + segment(action)
}

// segment makes s safe as a single topic level.
func segment(s string) string {
	if s == "" {
		return "unknown"
	}
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
