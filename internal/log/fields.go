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
	FieldOperation  = "operation"
	FieldOwnerID    = "owner_id"
	FieldExpenseID  = "expense_id"
	FieldCategory   = "category"
	FieldAmount     = "amount_cents"
	FieldRuleID     = "rule_id"
	FieldBackend    = "backend"
)

// Components defines standard component names.
const (
	ComponentApp    = "app"
	ComponentHTTP   = "http"
	ComponentLedger = "ledger"
	ComponentEngine = "engine"
	ComponentRemote = "remote"
	ComponentAlerts = "alerts"
	ComponentMirror = "mirror"
	ComponentAdvice = "advice"
	ComponentAMQP   = "amqp"
	ComponentCache  = "cache"
)

// Operations defines standard operation names.
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpSubscribe = "subscribe"
	OpRecompute = "recompute"
	OpMirror    = "mirror"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)
