package logger

import (
	"context"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/feral-file/registry-indexer/internal/domain"
)

var (
	// log stays a no-op until Initialize runs, so packages can log from tests without setup
	log = zap.NewNop()
	// sentryClient is set when a DSN is configured
	sentryClient *sentry.Client
)

// Config holds logger configuration
type Config struct {
	Debug           bool
	SentryDSN       string
	SentryClient    *sentry.Client
	Environment     string
	BreadcrumbLevel zapcore.Level
	Tags            map[string]string
}

// Initialize builds the global logger. Errors are forwarded to sentry when a DSN
// or client is configured, with lower levels kept as breadcrumbs.
func Initialize(cfg Config) error {
	zapConfig := zap.NewProductionConfig()
	level := zapcore.InfoLevel
	if cfg.Debug {
		zapConfig = zap.NewDevelopmentConfig()
		level = zapcore.DebugLevel
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return err
	}

	if cfg.SentryDSN == "" && cfg.SentryClient == nil {
		log = baseLogger
		return nil
	}

	sentryClient = cfg.SentryClient
	if sentryClient == nil {
		sentryClient, err = sentry.NewClient(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Debug:       cfg.Debug,
			Environment: cfg.Environment,
		})
		if err != nil {
			return err
		}
	}

	breadcrumbLevel := cfg.BreadcrumbLevel
	if breadcrumbLevel == zapcore.InvalidLevel {
		breadcrumbLevel = zapcore.InfoLevel
	}

	core, err := zapsentry.NewCore(zapsentry.Configuration{
		Level:             zapcore.ErrorLevel,
		EnableBreadcrumbs: true,
		BreadcrumbLevel:   breadcrumbLevel,
		Tags:              cfg.Tags,
	}, zapsentry.NewSentryClientFromClient(sentryClient))
	if err != nil {
		return err
	}

	log = zapsentry.AttachCoreToLogger(core, baseLogger)
	return nil
}

// Flush waits up to timeout for queued sentry events
func Flush(timeout time.Duration) {
	if sentryClient != nil {
		sentryClient.Flush(timeout)
	}
}

// FromContext returns the global logger bound to the sentry scope of ctx
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return log
	}
	return log.With(zapsentry.Context(ctx))
}

// With returns a child of the global logger carrying fields
func With(fields ...zap.Field) *zap.Logger {
	return log.With(fields...)
}

// ForDomain returns a child logger tagged with the indexed registry
func ForDomain(d domain.Domain, fields ...zap.Field) *zap.Logger {
	return log.With(append([]zap.Field{Domain(d)}, fields...)...)
}

// Domain tags a log line with the registry it concerns
func Domain(d domain.Domain) zap.Field {
	return zap.String("domain", string(d))
}

// Kind tags a log line with an event kind
func Kind(k domain.EventKind) zap.Field {
	return zap.String("kind", string(k))
}

// TxHash tags a log line with the transaction that emitted an event
func TxHash(hash string) zap.Field {
	return zap.String("tx_hash", hash)
}

// Block tags a log line with a block number
func Block(n uint64) zap.Field {
	return zap.Uint64("block", n)
}

// PassID tags every line of one supervisor pass
func PassID(id string) zap.Field {
	return zap.String("pass_id", id)
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	log.Info(msg, fields...)
}

// InfoCtx logs an info message with context
func InfoCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	log.Debug(msg, fields...)
}

// DebugCtx logs a debug message with context
func DebugCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Debug(msg, fields...)
}

// Error logs err as the message
func Error(err error, fields ...zap.Field) {
	log.Error(errorMessage(err), fields...)
}

// ErrorCtx logs err as the message with context
func ErrorCtx(ctx context.Context, err error, fields ...zap.Field) {
	FromContext(ctx).Error(errorMessage(err), fields...)
}

// WarnErrCtx logs a recoverable error at warn level with context
func WarnErrCtx(ctx context.Context, msg string, err error, fields ...zap.Field) {
	FromContext(ctx).Warn(msg, append(fields, zap.Error(err))...)
}

// FatalCtx logs a fatal message with context and exits
func FatalCtx(ctx context.Context, msg string, fields ...zap.Field) {
	FromContext(ctx).Fatal(msg, fields...)
}

func errorMessage(err error) string {
	if err == nil {
		return "error occurred"
	}
	return err.Error()
}
