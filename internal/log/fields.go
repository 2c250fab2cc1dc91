package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldKey        = "key"
	FieldBytes      = "bytes"
	FieldCount      = "count"
	FieldRecordID   = "record_id"
	FieldRecordType = "record_type"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldModel      = "model"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentChat    = "chat"
	ComponentSession = "session"
	ComponentBridge  = "bridge"
	ComponentStorage = "storage"
	ComponentCache   = "cache"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpClear    = "clear"
	OpClassify = "classify"
	OpPublish  = "publish"
	OpExport   = "export"
)
