// Package logging provides config-driven categorized file-based logging for riva.
// Logs are written to <workspace>/.riva/logs/ with separate files per category.
// Logging is a silent no-op unless debug mode is enabled.
package logging

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/system.
type Category string

const (
	CategoryBoot    Category = "boot"    // Startup and configuration
	CategoryEngine  Category = "engine"  // Intention tree navigation
	CategorySandbox Category = "sandbox" // File operations, command execution
	CategoryAPI     Category = "api"     // LLM provider calls
	CategoryTools   Category = "tools"   // Tool provider calls
	CategoryStore   Category = "store"   // Session store operations
	CategorySession Category = "session" // Session capture and run logs
	CategoryQuality Category = "quality" // Quality tier accounting
)

// Options controls logging behavior. Zero value disables all logging.
type Options struct {
	DebugMode  bool            `json:"debug_mode" yaml:"debug_mode"`
	Categories map[string]bool `json:"categories" yaml:"categories"`
	Level      string          `json:"level" yaml:"level"`
}

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Logger writes timestamped lines to a per-category file.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	logsDir   string
	opts      Options
	optsMu    sync.RWMutex
	logLevel  int
)

// Initialize sets up the logging directory. Call once at startup with the
// workspace path. When o.DebugMode is false this is a no-op.
func Initialize(workspace string, o Options) error {
	if workspace == "" {
		return fmt.Errorf("workspace path required")
	}

	optsMu.Lock()
	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	optsMu.Unlock()

	if !o.DebugMode {
		return nil
	}

	logsDir = filepath.Join(workspace, ".riva", "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== riva logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	return nil
}

// IsCategoryEnabled returns whether a category currently produces output.
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) || logsDir == "" {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", logPath, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message (always written if the logger exists).
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// StructuredLog writes a JSON entry with custom fields.
func (l *Logger) StructuredLog(level, msg string, fields map[string]interface{}) {
	if l.logger == nil {
		return
	}
	entry := map[string]interface{}{
		"ts":     time.Now().UnixMilli(),
		"cat":    string(l.category),
		"lvl":    level,
		"msg":    msg,
		"fields": fields,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		l.logger.Printf("[%s] %s | fields=%v", level, msg, fields)
		return
	}
	l.logger.Printf("%s", data)
}

// CloseAll closes all open log files (call at shutdown).
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Convenience functions. No-ops when the category is disabled.

// Engine logs to the engine category.
func Engine(format string, args ...interface{}) {
	Get(CategoryEngine).Info(format, args...)
}

// EngineDebug logs debug to the engine category.
func EngineDebug(format string, args ...interface{}) {
	Get(CategoryEngine).Debug(format, args...)
}

// EngineWarn logs warning to the engine category.
func EngineWarn(format string, args ...interface{}) {
	Get(CategoryEngine).Warn(format, args...)
}

// EngineError logs error to the engine category.
func EngineError(format string, args ...interface{}) {
	Get(CategoryEngine).Error(format, args...)
}

// Sandbox logs to the sandbox category.
func Sandbox(format string, args ...interface{}) {
	Get(CategorySandbox).Info(format, args...)
}

// SandboxDebug logs debug to the sandbox category.
func SandboxDebug(format string, args ...interface{}) {
	Get(CategorySandbox).Debug(format, args...)
}

// API logs to the api category.
func API(format string, args ...interface{}) {
	Get(CategoryAPI).Info(format, args...)
}

// APIDebug logs debug to the api category.
func APIDebug(format string, args ...interface{}) {
	Get(CategoryAPI).Debug(format, args...)
}

// APIError logs error to the api category.
func APIError(format string, args ...interface{}) {
	Get(CategoryAPI).Error(format, args...)
}

// Tools logs to the tools category.
func Tools(format string, args ...interface{}) {
	Get(CategoryTools).Info(format, args...)
}

// ToolsDebug logs debug to the tools category.
func ToolsDebug(format string, args ...interface{}) {
	Get(CategoryTools).Debug(format, args...)
}

// Store logs to the store category.
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Info(format, args...)
}

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debug(format, args...)
}

// StoreError logs error to the store category.
func StoreError(format string, args ...interface{}) {
	Get(CategoryStore).Error(format, args...)
}

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}
