package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	cases := []struct {
		level, env string
		want       zapcore.Level
	}{
		{"debug", "development", zapcore.DebugLevel},
		{"WARN", "production", zapcore.WarnLevel},
		{"bogus", "production", zapcore.InfoLevel},
		{"", "", zapcore.InfoLevel},
	}
	for _, tc := range cases {
		log, err := New(tc.level, tc.env)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tc.level, tc.env, err)
		}
		if !log.Core().Enabled(tc.want) {
			t.Fatalf("New(%q, %q): level %s not enabled", tc.level, tc.env, tc.want)
		}
		if tc.want > zapcore.DebugLevel && log.Core().Enabled(tc.want-1) {
			t.Fatalf("New(%q, %q): level below %s enabled", tc.level, tc.env, tc.want)
		}
	}
}
