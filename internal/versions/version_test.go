package versions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetVersionInfoWithValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		version   string
		commit    string
		buildDate string
		check     func(t *testing.T, info VersionInfo)
	}{
		{
			name:      "release build",
			version:   "1.2.3",
			commit:    "abcdef1234567890",
			buildDate: "2026-08-26T10:00:00Z",
			check: func(t *testing.T, info VersionInfo) {
				assert.Equal(t, "1.2.3", info.Version)
				assert.Equal(t, "abcdef1234567890", info.Commit)
				assert.Contains(t, info.BuildDate, "2026-08-26")
			},
		},
		{
			name:      "dev build manufactures version from commit",
			version:   "dev",
			commit:    "abcdef1234567890",
			buildDate: unknownStr,
			check: func(t *testing.T, info VersionInfo) {
				assert.Equal(t, "build-abcdef12", info.Version)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			info := getVersionInfoWithValues(tt.version, tt.commit, tt.buildDate)
			tt.check(t, info)
			assert.NotEmpty(t, info.GoVersion)
			assert.True(t, strings.Contains(info.Platform, "/"))
		})
	}
}
