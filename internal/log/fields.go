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
	FieldSessionID  = "session_id"
	FieldSourceID   = "source_id"
	FieldSourceName = "source_name"
	FieldFileName   = "file"
	FieldRowCount   = "rows"
	FieldCategory   = "category"
	FieldMatchCount = "match_count"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentIngest    = "ingest"
	ComponentStore     = "store"
	ComponentJournal   = "journal"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)

// Operations defines standard operation names
const (
	OpImport     = "import"
	OpRemove     = "remove"
	OpCategorize = "categorize"
	OpQuery      = "query"
	OpSummarize  = "summarize"
	OpArchive    = "archive"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)
