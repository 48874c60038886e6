package model

import "time"

// AuditEvent is one entry of the audit_logs collection. Before, After and
// Meta hold arbitrary snapshots of the entity being changed.
type AuditEvent struct {
	ID        string         `bson:"_id" json:"id"`
	Action    string         `bson:"action" json:"action"`
	Entity    string         `bson:"entity" json:"entity"`
	EntityID  string         `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	UserID    string         `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Role      string         `bson:"role,omitempty" json:"role,omitempty"`
	IP        string         `bson:"ip,omitempty" json:"ip,omitempty"`
	Before    map[string]any `bson:"before,omitempty" json:"before,omitempty"`
	After     map[string]any `bson:"after,omitempty" json:"after,omitempty"`
	Meta      map[string]any `bson:"meta,omitempty" json:"meta,omitempty"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	UserAgent string         `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// AuditFilter narrows an audit listing. Zero values match everything.
type AuditFilter struct {
	Action string
	UserID string
	Entity string
	Since  time.Time
	Limit  int64
}
