package database

import (
	"testing"

	"gorm.io/gorm/logger"
)

func TestLogLevelFollowsEnvironment(t *testing.T) {
	tests := []struct {
		env  string
		want logger.LogLevel
	}{
		{"test", logger.Silent},
		{"development", logger.Info},
		{"production", logger.Warn},
		{"staging", logger.Warn},
	}
	for _, tc := range tests {
		if got := logLevel(tc.env); got != tc.want {
			t.Fatalf("logLevel(%q) = %v, want %v", tc.env, got, tc.want)
		}
	}
}
