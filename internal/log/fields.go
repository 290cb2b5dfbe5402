package log

// Shared field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldError      = "error"

	FieldOwnerID     = "owner_id"
	FieldExpenseID   = "expense_id"
	FieldCategory    = "category"
	FieldAmount      = "amount"
	FieldGranularity = "granularity"
	FieldQueue       = "queue"
	FieldJobID       = "job_id"
	FieldBatchSize   = "batch_size"
)

// Standard component names.
const (
	ComponentAPI       = "api"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentIngest    = "ingest"
	ComponentCache     = "cache"
	ComponentRateLimit = "rate_limit"
)
