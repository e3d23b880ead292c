/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ServiceName is stamped on every production log line.
const ServiceName = "users-service"

const (
	// EnvLogLevel selects the filtering threshold.
	EnvLogLevel = "LOG_LEVEL"
	// EnvEnvironment selects the output format.
	EnvEnvironment = "ENVIRONMENT"
	// EnvLogAccess enables the per-request access log.
	EnvLogAccess = "LOG_ACCESS"

	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
)

// Subsystems whose output is discarded. SubsystemHTTPAccess is enabled by
// Config.Access.
const (
	SubsystemSQL        = "bun"
	SubsystemHTTPAccess = "http.access"
)

// Config holds the options Setup understands.
type Config struct {
	Level        string    `koanf:"level" yaml:"level"`
	Environment  string    `koanf:"environment" yaml:"environment"`
	Output       io.Writer `koanf:"-" yaml:"-"`
	DisableColor bool      `koanf:"disable_color" yaml:"disable_color"`
	Access       bool      `koanf:"access" yaml:"access"`
}

// ConfigFromEnv reads LOG_LEVEL (default INFO) and ENVIRONMENT (default
// development).
func ConfigFromEnv() Config {
	return Config{
		Level:       envDefault(EnvLogLevel, "INFO"),
		Environment: envDefault(EnvEnvironment, EnvironmentDevelopment),
	}
}

// Production reports whether the JSON layout is selected.
func (c Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), EnvironmentProduction)
}

// Factory hands out named loggers sharing one configured logrus.Logger.
type Factory struct {
	base       *logrus.Logger
	silent     *logrus.Logger
	suppressed map[string]struct{}
}

// Setup configures logging once at process entry and returns the factory
// callers obtain named loggers from.
func Setup(cfg Config) *Factory {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	base := logrus.New()
	base.SetOutput(out)
	base.SetReportCaller(true)
	if cfg.Production() {
		base.SetFormatter(&jsonFormatter{service: ServiceName})
	} else {
		base.SetFormatter(newTextFormatter(!cfg.DisableColor))
	}

	level, err := ParseLevel(cfg.Level)
	base.SetLevel(level)
	if err != nil {
		base.WithField("log_level", cfg.Level).Warn("Unknown log level, falling back to INFO")
	}

	silent := logrus.New()
	silent.SetOutput(io.Discard)
	silent.SetLevel(logrus.PanicLevel)

	suppressed := map[string]struct{}{SubsystemSQL: {}}
	if !cfg.Access {
		suppressed[SubsystemHTTPAccess] = struct{}{}
	}

	return &Factory{
		base:       base,
		silent:     silent,
		suppressed: suppressed,
	}
}

// Logger returns the root logger.
func (f *Factory) Logger() *logrus.Logger {
	return f.base
}

// Named returns a logger pre-bound with a name field. Suppressed subsystems
// get a logger that discards everything.
func (f *Factory) Named(name string) *logrus.Entry {
	if f.Suppressed(name) {
		return f.silent.WithField("name", name)
	}
	return f.base.WithField("name", name)
}

// Writer returns the raw destination for a subsystem that writes bytes
// rather than entries, such as a SQL query printer.
func (f *Factory) Writer(name string) io.Writer {
	if f.Suppressed(name) {
		return io.Discard
	}
	return f.base.Out
}

// Suppressed reports whether name, or a parent of it, is silenced.
func (f *Factory) Suppressed(name string) bool {
	for n := name; n != ""; {
		if _, ok := f.suppressed[n]; ok {
			return true
		}
		i := strings.LastIndex(n, ".")
		if i < 0 {
			break
		}
		n = n[:i]
	}
	return false
}

// ParseLevel maps LOG_LEVEL values onto logrus levels. Unknown values yield
// InfoLevel together with an error.
func ParseLevel(s string) (logrus.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO", "SUCCESS":
		return logrus.InfoLevel, nil
	case "TRACE":
		return logrus.TraceLevel, nil
	case "DEBUG":
		return logrus.DebugLevel, nil
	case "WARNING", "WARN":
		return logrus.WarnLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	case "CRITICAL", "FATAL":
		return logrus.FatalLevel, nil
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel, err
	}
	return level, nil
}

func envDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}
