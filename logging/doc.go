// Package logging bootstraps process-wide logrus output. Production emits one
// JSON object per line; every other environment gets a colourised layout.
package logging
