// Package envconfig reads BORN_* environment variables.
//
// Every getter re-reads the environment, so tests can use t.Setenv.
// Invalid values log a warning and fall back to the default.
package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

// LogLevel returns the log level.
// Configurable via BORN_DEBUG: 0/false = INFO (default), 1/true = DEBUG, 2 = TRACE.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("BORN_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

var (
	// Debug enables debug logging. Configurable via BORN_DEBUG.
	Debug = Bool("BORN_DEBUG")
	// Seed seeds weight initialization and batch shuffling. Configurable via BORN_SEED.
	Seed = Int64("BORN_SEED", 1)
	// Epochs is the default number of training epochs. Configurable via BORN_EPOCHS.
	Epochs = Uint("BORN_EPOCHS", 500)
	// BatchSize is the default mini-batch size. Configurable via BORN_BATCH_SIZE.
	BatchSize = Uint("BORN_BATCH_SIZE", 16)
	// LearningRate is the default optimizer learning rate. Configurable via BORN_LR.
	LearningRate = Float("BORN_LR", 0.05)
	// Optimizer is the default optimizer name (sgd or adam). Configurable via BORN_OPTIMIZER.
	Optimizer = StringWithDefault("BORN_OPTIMIZER", "adam")
)

// Var returns an environment variable stripped of leading and trailing
// quotes and spaces.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// BoolWithDefault returns a getter for a boolean with a caller-supplied default.
func BoolWithDefault(k string) func(defaultValue bool) bool {
	return func(defaultValue bool) bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return defaultValue
	}
}

// Bool returns a getter for a boolean that defaults to false.
func Bool(k string) func() bool {
	withDefault := BoolWithDefault(k)
	return func() bool {
		return withDefault(false)
	}
}

// StringWithDefault returns a getter for a string.
func StringWithDefault(key, defaultValue string) func() string {
	return func() string {
		if s := Var(key); s != "" {
			return s
		}
		return defaultValue
	}
}

// Uint returns a getter for a uint.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Int64 returns a getter for an int64.
func Int64(key string, defaultValue int64) func() int64 {
	return func() int64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseInt(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// Float returns a getter for a positive float64.
func Float(key string, defaultValue float64) func() float64 {
	return func() float64 {
		if s := Var(key); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err != nil || f <= 0 {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return f
			}
		}
		return defaultValue
	}
}

// EnvVar describes one configuration variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every variable with its current value and description.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"BORN_DEBUG":      {"BORN_DEBUG", LogLevel(), "Show additional debug information (e.g. BORN_DEBUG=1)"},
		"BORN_SEED":       {"BORN_SEED", Seed(), "Random seed for initialization and shuffling (default 1)"},
		"BORN_EPOCHS":     {"BORN_EPOCHS", Epochs(), "Training epochs (default 500)"},
		"BORN_BATCH_SIZE": {"BORN_BATCH_SIZE", BatchSize(), "Mini-batch size (default 16)"},
		"BORN_LR":         {"BORN_LR", LearningRate(), "Learning rate (default 0.05)"},
		"BORN_OPTIMIZER":  {"BORN_OPTIMIZER", Optimizer(), "Optimizer: sgd or adam (default adam)"},
	}
}

// Values returns every variable's current value formatted as a string.
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}
