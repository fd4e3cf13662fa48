package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Yellow = "\033[33m"
	Red    = "\033[31m"

	BrightGreen = "\033[92m"
	BrightBlue  = "\033[94m"
)

// Cache-related log prefixes
const (
	LogCacheInit  = Blue + "[Cache:Init]" + Reset
	LogCache      = Blue + "[Cache]" + Reset
	LogCacheFlush = Blue + "[Cache:Flush]" + Reset
	LogCacheClear = Blue + "[Cache:Clear]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogAPIKey    = Purple + "[APIKey]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer = Green + "[Server]" + Reset
	LogConfig = Cyan + "[Config]" + Reset
	LogStats  = Blue + "[Stats]" + Reset
	LogHTTP   = Cyan + "[HTTP]" + Reset

	LogNotifier = Yellow + "[Notifier]" + Reset
)

// Search pipeline log prefixes
const (
	LogExecutor = Purple + "[Executor]" + Reset
	LogQuota    = Red + "[Quota]" + Reset
	LogYouTube  = Cyan + "[YouTube]" + Reset
	LogFinder   = Green + "[Finder]" + Reset
	LogStrategy = BrightBlue + "[Strategy]" + Reset
	LogVerify   = Cyan + "[Verify]" + Reset
	LogFound    = BrightGreen + "[Found]" + Reset
	LogCancel   = Yellow + "[Cancel]" + Reset
	LogWarning  = Red + "[Warning]" + Reset
)
