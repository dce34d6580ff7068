package sqlite

import (
	"go/build"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestGeneratedQueries_AllPlatforms guards against query file names that Go
// reads as GOOS or GOARCH suffixes (e.g. rate_windows.sql.go), which would
// silently drop the queries on every other platform.
func TestGeneratedQueries_AllPlatforms(t *testing.T) {
	t.Parallel()

	dir := "gen"
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, goos := range []string{"linux", "darwin", "windows", "freebsd"} {
		ctx := build.Default
		ctx.GOOS = goos
		for _, e := range entries {
			if !strings.HasSuffix(e.Name(), ".go") {
				continue
			}
			ok, err := ctx.MatchFile(dir, e.Name())
			require.NoError(t, err)
			require.True(t, ok, "%s excluded on %s", filepath.Join(dir, e.Name()), goos)
		}
	}
}
