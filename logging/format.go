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
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

func levelName(l logrus.Level) string {
	switch l {
	case logrus.TraceLevel:
		return "TRACE"
	case logrus.DebugLevel:
		return "DEBUG"
	case logrus.InfoLevel:
		return "INFO"
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.ErrorLevel:
		return "ERROR"
	default:
		return "CRITICAL"
	}
}

// splitFunction turns "github.com/a/b/pkg.(*T).Method" into
// ("github.com/a/b/pkg", "(*T).Method").
func splitFunction(fn string) (module, function string) {
	slash := strings.LastIndex(fn, "/")
	dot := strings.Index(fn[slash+1:], ".")
	if dot < 0 {
		return fn, ""
	}
	return fn[:slash+1+dot], fn[slash+1+dot+1:]
}

func callerOf(e *logrus.Entry) (module, function string, line int) {
	if e.Caller == nil {
		if name, ok := e.Data["name"].(string); ok {
			return name, "", 0
		}
		return "", "", 0
	}
	module, function = splitFunction(e.Caller.Function)
	return module, function, e.Caller.Line
}

type jsonFormatter struct {
	service string
}

func (f *jsonFormatter) Format(e *logrus.Entry) ([]byte, error) {
	module, _, _ := callerOf(e)
	data := logrus.Fields{
		"timestamp": e.Time.Format(time.RFC3339Nano),
		"level":     levelName(e.Level),
		"logger":    module,
		"message":   e.Message,
		"service":   f.service,
	}
	for k, v := range e.Data {
		if k == logrus.ErrorKey {
			continue
		}
		switch v := v.(type) {
		case error:
			data[k] = v.Error()
		default:
			data[k] = v
		}
	}
	if err, ok := e.Data[logrus.ErrorKey]; ok && err != nil {
		data["exception"] = fmt.Sprint(err)
	}

	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal log entry: %w", err)
	}
	return append(b, '\n'), nil
}

type textFormatter struct {
	timestamp *color.Color
	location  *color.Color
	levels    map[logrus.Level]*color.Color
}

func newTextFormatter(colorize bool) *textFormatter {
	f := &textFormatter{
		timestamp: color.New(color.FgGreen),
		location:  color.New(color.FgCyan),
		levels: map[logrus.Level]*color.Color{
			logrus.TraceLevel: color.New(color.FgCyan, color.Bold),
			logrus.DebugLevel: color.New(color.FgBlue, color.Bold),
			logrus.InfoLevel:  color.New(color.Bold),
			logrus.WarnLevel:  color.New(color.FgYellow, color.Bold),
			logrus.ErrorLevel: color.New(color.FgRed, color.Bold),
			logrus.FatalLevel: color.New(color.FgWhite, color.BgRed, color.Bold),
			logrus.PanicLevel: color.New(color.FgWhite, color.BgRed, color.Bold),
		},
	}
	all := append([]*color.Color{f.timestamp, f.location}, mapValues(f.levels)...)
	for _, c := range all {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return f
}

func (f *textFormatter) Format(e *logrus.Entry) ([]byte, error) {
	module, function, line := callerOf(e)
	lvl := f.levels[e.Level]
	if lvl == nil {
		lvl = f.levels[logrus.InfoLevel]
	}

	var b bytes.Buffer
	b.WriteString(f.timestamp.Sprint(e.Time.Format(time.DateTime)))
	b.WriteString(" | ")
	b.WriteString(lvl.Sprintf("%-8s", levelName(e.Level)))
	b.WriteString(" | ")
	b.WriteString(f.location.Sprint(module))
	b.WriteByte(':')
	b.WriteString(f.location.Sprint(function))
	b.WriteByte(':')
	b.WriteString(f.location.Sprint(line))
	b.WriteString(" - ")
	b.WriteString(lvl.Sprint(e.Message))
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func mapValues(m map[logrus.Level]*color.Color) []*color.Color {
	out := make([]*color.Color, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
