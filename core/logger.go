package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// StdLogger is the production Logger implementation.
//
// Configuration priority:
//  1. Environment variables (TAXONAUT_LOG_LEVEL, TAXONAUT_LOG_FORMAT, TAXONAUT_DEBUG)
//  2. Auto-detection (JSON format inside Kubernetes)
//  3. Defaults (INFO level, text format)
//
// Error logs are rate limited to prevent flooding when a downstream
// service is failing repeatedly.
type StdLogger struct {
	level       string
	debug       bool
	serviceName string
	format      string
	output      io.Writer
	mu          sync.Mutex

	errorInterval time.Duration
	lastError     time.Time
}

// NewStdLogger creates a logger for the named component.
func NewStdLogger(serviceName string) *StdLogger {
	level := os.Getenv("TAXONAUT_LOG_LEVEL")
	if level == "" {
		level = "INFO"
	}

	debug := os.Getenv("TAXONAUT_DEBUG") == "true" ||
		strings.ToUpper(level) == "DEBUG"

	// JSON in Kubernetes for log aggregation, text for local dev.
	format := "text"
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		format = "json"
	}
	if envFormat := os.Getenv("TAXONAUT_LOG_FORMAT"); envFormat != "" {
		format = envFormat
	}

	return &StdLogger{
		level:         strings.ToUpper(level),
		debug:         debug,
		serviceName:   serviceName,
		format:        format,
		output:        os.Stdout,
		errorInterval: 1 * time.Second,
	}
}

// SetOutput redirects log output, mainly for tests.
func (l *StdLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.output = w
}

// Info logs informational messages
func (l *StdLogger) Info(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}

// Warn logs warning messages
func (l *StdLogger) Warn(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}

// Error logs error messages with rate limiting
func (l *StdLogger) Error(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	if time.Since(l.lastError) < l.errorInterval {
		l.mu.Unlock()
		return
	}
	l.lastError = time.Now()
	l.mu.Unlock()

	l.log("ERROR", msg, fields)
}

// Debug logs debug messages (only when debug mode is enabled)
func (l *StdLogger) Debug(msg string, fields map[string]interface{}) {
	if !l.debug {
		return
	}
	l.log("DEBUG", msg, fields)
}

func (l *StdLogger) log(level, msg string, fields map[string]interface{}) {
	if !l.shouldLog(level) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	timestamp := time.Now().UTC().Format(time.RFC3339)

	if l.format == "json" {
		entry := map[string]interface{}{
			"timestamp": timestamp,
			"level":     level,
			"service":   l.serviceName,
			"message":   msg,
		}
		for k, v := range fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.output, "%s [%s] %s %s (log marshal error: %v)\n",
				timestamp, level, l.serviceName, msg, err)
			return
		}
		fmt.Fprintln(l.output, string(data))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s: %s", timestamp, level, l.serviceName, msg)
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	fmt.Fprintln(l.output, b.String())
}

func (l *StdLogger) shouldLog(level string) bool {
	rank := map[string]int{"DEBUG": 0, "INFO": 1, "WARN": 2, "ERROR": 3}
	min, ok := rank[l.level]
	if !ok {
		min = 1
	}
	return rank[level] >= min
}
