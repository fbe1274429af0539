package envconfig

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/born-ml/valgrad/internal/logutil"
)

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"0":     slog.LevelInfo,
		"1":     slog.LevelDebug,
		"true":  slog.LevelDebug,
		"2":     logutil.LevelTrace,
	}
	for value, want := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("BORN_DEBUG", value)
			assert.Equal(t, want, LogLevel())
		})
	}
}

func TestVarTrimsQuotes(t *testing.T) {
	t.Setenv("BORN_OPTIMIZER", ` "sgd" `)
	assert.Equal(t, "sgd", Var("BORN_OPTIMIZER"))
	assert.Equal(t, "sgd", Optimizer())
}

func TestDefaults(t *testing.T) {
	for _, k := range []string{"BORN_SEED", "BORN_EPOCHS", "BORN_BATCH_SIZE", "BORN_LR", "BORN_OPTIMIZER", "BORN_DEBUG"} {
		t.Setenv(k, "")
	}
	assert.Equal(t, int64(1), Seed())
	assert.Equal(t, uint(500), Epochs())
	assert.Equal(t, uint(16), BatchSize())
	assert.Equal(t, 0.05, LearningRate())
	assert.Equal(t, "adam", Optimizer())
	assert.False(t, Debug())
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("BORN_SEED", "abc")
	t.Setenv("BORN_EPOCHS", "-3")
	t.Setenv("BORN_LR", "-0.1")
	assert.Equal(t, int64(1), Seed())
	assert.Equal(t, uint(500), Epochs())
	assert.Equal(t, 0.05, LearningRate())
}

func TestOverrides(t *testing.T) {
	t.Setenv("BORN_SEED", "42")
	t.Setenv("BORN_EPOCHS", "10")
	t.Setenv("BORN_LR", "0.5")
	assert.Equal(t, int64(42), Seed())
	assert.Equal(t, uint(10), Epochs())
	assert.Equal(t, 0.5, LearningRate())
	assert.Equal(t, "42", Values()["BORN_SEED"])
}
