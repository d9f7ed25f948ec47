package transport

// Constants for default server configuration.
const (
	// DefaultServerPort is the default port the simulated backend listens on.
	DefaultServerPort = ":8082"
	// DefaultServerURL is the default URL for the backend.
	DefaultServerURL = "http://localhost:8082"
)

// Backend endpoint paths.
const (
	PathPing           = "/ping"
	PathMetrics        = "/metrics"
	PathLogin          = "/microsoft/login"
	PathAuthorize      = "/microsoft/authorize"
	PathSystemLogin    = "/microsoft/login/system"
	PathAsk            = "/document/ask"
	PathDocuments      = "/document/all"
	PathUpload         = "/document/upload"
	PathDocumentPrefix = "/document/"
)

// IdentityStorageKey is the single durable storage key holding the
// last authenticated identity.
const IdentityStorageKey = "userEmail"

// BackendURLEnv overrides the configured backend URL.
const BackendURLEnv = "CAMPUS_CHAT_BACKEND_URL"
