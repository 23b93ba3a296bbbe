package log

const (
	// Connection
	FieldConnID   = "conn_id"
	FieldClientIP = "client_ip"

	// Actor
	FieldUserID = "user_id"

	// Relay entities
	FieldRoomID    = "room_id"
	FieldMessageID = "message_id"
	FieldClientKey = "client_id"

	// Service
	FieldService = "service"

	// Log type (for audit log)
	FieldLogType = "log_type"
	LogTypeAudit = "audit"
)
