package errs

import "github.com/m-mizutani/goerr/v2"

var (
	// Client errors (4xx)
	TagNotFound     = goerr.NewTag("not_found")    // 404
	TagValidation   = goerr.NewTag("validation")   // 400
	TagUnauthorized = goerr.NewTag("unauthorized") // 401
	TagForbidden    = goerr.NewTag("forbidden")    // 403

	// Server errors (5xx)
	TagInternal = goerr.NewTag("internal") // 500
	TagExternal = goerr.NewTag("external") // 502/503
	TagTimeout  = goerr.NewTag("timeout")  // 504
	TagDatabase = goerr.NewTag("database") // 500 (specific to DB errors)

	// Job-scoped failures. These terminate one analysis run with a
	// completion-shaped error event; the connection stays open.
	TagProviderUnavailable = goerr.NewTag("provider_unavailable")
	TagNoResults           = goerr.NewTag("no_results")
	TagNoContent           = goerr.NewTag("no_content")
	TagAnalysisFailed      = goerr.NewTag("analysis_failed")

	// Protocol errors: malformed inbound message, connection stays open
	TagProtocol = goerr.NewTag("protocol")

	// Cancelled marks a job abandoned by the caller (disconnect, shutdown).
	// Not a provider fault; kept separate so logs do not misattribute it.
	TagCancelled = goerr.NewTag("cancelled")
)

// IsJobError reports whether err is a job-scoped failure that should be
// reported to the client and leave the connection usable.
func IsJobError(err error) bool {
	return goerr.HasTag(err, TagProviderUnavailable) ||
		goerr.HasTag(err, TagNoResults) ||
		goerr.HasTag(err, TagNoContent) ||
		goerr.HasTag(err, TagAnalysisFailed)
}
