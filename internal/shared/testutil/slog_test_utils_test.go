package testutil

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")
		logger.Error("error msg")

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 1)
		assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
		AssertLogContains(t, handler, slog.LevelWarn, "warn")
	})

	t.Run("keeps logger attributes", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "dashboard_service")).
			Info("refresh complete", slog.Int("records", 5))

		records := handler.GetRecordsByLevel(slog.LevelInfo)
		require.Len(t, records, 1)
		assert.Equal(t, "dashboard_service", records[0].Attrs["component"])
		assert.Equal(t, int64(5), records[0].Attrs["records"])
	})

	t.Run("concurrent logging", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				logger.Info("concurrent log", slog.Int("goroutine", i))
			}()
		}
		wg.Wait()

		assert.Len(t, handler.GetRecordsByLevel(slog.LevelInfo), 10)
	})
}
