package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// sensitiveKeys contains attribute keys that are always redacted.
var sensitiveKeys = map[string]bool{
	"authorization":      true,
	"cookie":             true,
	"password":           true,
	"secret":             true,
	"token":              true,
	"api_key":            true,
	"apikey":             true,
	"access_token":       true,
	"netlify_auth_token": true,
	"netlify_site_id":    true,
	"github_token":       true,
	"gh_token":           true,
	"deploy_key":         true,
	"ssh_key":            true,
	"credentials":        true,
}

// sensitiveKeywords are substrings of keys, environment variable names and
// command flags that mark the value as secret.
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "private",
}

// sensitivePatterns match secret values regardless of the key they are logged under.
var sensitivePatterns = []*regexp.Regexp{
	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer and basic auth headers
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// GitHub tokens (classic, fine-grained, app)
	regexp.MustCompile(`^(ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{20,}$`),
	regexp.MustCompile(`^github_pat_[A-Za-z0-9_]{20,}$`),

	// Netlify personal access tokens
	regexp.MustCompile(`^nf[pc]_[A-Za-z0-9]{20,}$`),

	// Long opaque strings
	regexp.MustCompile(`^[a-zA-Z0-9_-]{40,}$`),

	// Private key markers
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// SecureHandler wraps an slog.Handler and redacts deploy credentials before
// records reach the underlying handler. Besides plain attributes it scrubs
// command lines ([]string) and KEY=value environment entries, which is how
// publisher and fetcher commands show up in the logs.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a new SecureHandler wrapping the given handler.
// If handler is nil, slog.Default().Handler() is used.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the underlying handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record's attributes and passes it to the underlying handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a new handler with the given attributes sanitized and added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(out)}
}

// WithGroup returns a new handler with the given group name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	switch a.Value.Kind() {
	case slog.KindGroup:
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if args, ok := a.Value.Any().([]string); ok {
			return slog.Any(a.Key, SanitizeArgs(args))
		}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, sanitizeString(a.Value.String()))
	}
	return a
}

// SanitizeArgs returns a copy of a command line or environment list with
// secrets redacted. It masks values of sensitive KEY=value and --flag=value
// entries, the argument following a sensitive --flag, and any argument that
// looks like a token.
func SanitizeArgs(args []string) []string {
	out := make([]string, len(args))
	maskNext := false
	for i, arg := range args {
		switch {
		case maskNext:
			out[i] = MaskValue
			maskNext = false
		case strings.HasPrefix(arg, "-") && !strings.Contains(arg, "="):
			out[i] = arg
			maskNext = isSensitiveKey(strings.TrimLeft(arg, "-"))
		default:
			out[i] = sanitizeString(arg)
		}
	}
	return out
}

// sanitizeString redacts a KEY=value entry with a sensitive key, or a value
// that matches a secret pattern.
func sanitizeString(s string) string {
	if key, _, ok := strings.Cut(s, "="); ok && key != "" && !strings.ContainsAny(key, " /") {
		if isSensitiveKey(strings.TrimLeft(key, "-")) {
			return key + "=" + MaskValue
		}
	}
	if isSensitiveValue(s) {
		return MaskValue
	}
	return s
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	if sensitiveKeys[lower] {
		return true
	}
	for _, kw := range sensitiveKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(value) {
			return true
		}
	}
	return false
}

// NewSecureLogger creates a text slog.Logger with secure handling.
// verbose selects Debug level; otherwise only warnings and errors are logged.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger creates a JSON slog.Logger with secure handling,
// for CI log collectors.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

// New picks the text or JSON logger.
func New(w io.Writer, verbose, json bool) *slog.Logger {
	if json {
		return NewSecureJSONLogger(w, verbose)
	}
	return NewSecureLogger(w, verbose)
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
