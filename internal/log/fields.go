package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldBatchID    = "batch_id"
	FieldMessageIdx = "message_index"
	FieldURL        = "url"
	FieldProgress   = "progress"
)

// Components defines standard component names.
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentStorage = "storage"
	ComponentFetch   = "fetch"
	ComponentExport  = "export"
	ComponentEngine  = "engine"
)
