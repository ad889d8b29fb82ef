package logging_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/abhivel/lyfe/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("info", buf)
	gt.V(t, logger).NotNil()

	logger.Info("hello from the archivist")
	gt.S(t, buf.String()).Contains("hello from the archivist")
}

func TestLevels(t *testing.T) {
	cases := []struct {
		level      string
		showsDebug bool
		showsInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"error", false, false},
		{"DEBUG", true, true},
		{"bogus", false, true},
	}

	for _, tc := range cases {
		t.Run(tc.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := logging.New(tc.level, buf)

			logger.Debug("debug line")
			logger.Info("info line")
			logger.Error("error line")

			out := buf.String()
			if tc.showsDebug {
				gt.S(t, out).Contains("debug line")
			} else {
				gt.S(t, out).NotContains("debug line")
			}
			if tc.showsInfo {
				gt.S(t, out).Contains("info line")
			} else {
				gt.S(t, out).NotContains("info line")
			}
			gt.S(t, out).Contains("error line")
		})
	}
}

func TestWithAndFrom(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := logging.New("debug", buf)

	ctx := logging.With(context.Background(), logger)
	gt.Equal(t, logging.From(ctx), logger)

	logging.From(ctx).Info("from context")
	gt.S(t, buf.String()).Contains("from context")
}

func TestFromFallsBackToDefault(t *testing.T) {
	original := logging.Default()

	buf := &bytes.Buffer{}
	logging.SetDefault(logging.New("warn", buf))
	defer logging.SetDefault(original)

	logging.From(context.Background()).Warn("fallback warning")
	gt.S(t, buf.String()).Contains("fallback warning")
}
