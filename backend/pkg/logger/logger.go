package logger

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	UserIDKey    contextKey = "user_id"
)

// Logger wraps zerolog. The rules engine itself never logs -- its output
// is the event stream -- so everything routed through here is hosting
// concern: HTTP requests, snapshot persistence, job progress.
type Logger struct {
	*zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level  string
	Pretty bool
}

// New creates a logger. Pretty output is for local development; the
// default JSON form is what ships.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	var zl zerolog.Logger
	if cfg.Pretty {
		zl = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		zl = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return &Logger{&zl}
}

// WithContext returns a logger annotated with the request-scoped ids the
// middleware put on ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	zl := l.Logger.With()
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		zl = zl.Str("request_id", requestID)
	}
	if userID, ok := ctx.Value(UserIDKey).(string); ok && userID != "" {
		zl = zl.Str("user_id", userID)
	}
	logger := zl.Logger()
	return &Logger{&logger}
}

// WithError adds an error field.
func (l *Logger) WithError(err error) *Logger {
	logger := l.Logger.With().Err(err).Logger()
	return &Logger{&logger}
}

// WithField adds one structured field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	logger := l.Logger.With().Interface(key, value).Logger()
	return &Logger{&logger}
}

// WithEncounter annotates the logger with the encounter id every
// engine-adjacent log line should carry.
func (l *Logger) WithEncounter(encounterID string) *Logger {
	logger := l.Logger.With().Str("encounter_id", encounterID).Logger()
	return &Logger{&logger}
}

var (
	defaultLogger *Logger
	loggerMutex   sync.Mutex
)

// Init initializes the process-wide logger.
func Init(cfg Config) {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	defaultLogger = New(cfg)
	log.Logger = *defaultLogger.Logger
}

// GetLogger returns the process-wide logger, initializing a default one
// on first use so early failures still log somewhere.
func GetLogger() *Logger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if defaultLogger == nil {
		defaultLogger = New(Config{Level: "info"})
		log.Logger = *defaultLogger.Logger
	}
	return defaultLogger
}

// Info starts an info-level event on the process-wide logger.
func Info() *zerolog.Event {
	return GetLogger().Info()
}

// Warn starts a warn-level event on the process-wide logger.
func Warn() *zerolog.Event {
	return GetLogger().Warn()
}

// Error starts an error-level event on the process-wide logger.
func Error() *zerolog.Event {
	return GetLogger().Error()
}

// ContextWithRequestID stores the request id for WithContext to pick up.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithUserID stores the authenticated user id for WithContext.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}
