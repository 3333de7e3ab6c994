package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if os.Getenv("DEBUG_TESTS") == "" {
		logrus.SetLevel(logrus.ErrorLevel)
	}
	os.Exit(m.Run())
}

// writeDataDir writes a CSV data directory with one person arrested for
// robbery in 2000 and 2001. With window 3 over 2000-2004 the rolling
// robbery total is 4 (window 2003) + 1 (window 2004) for every seed.
func writeDataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"people.csv":  "uid,race,gender,dob\na,Black,Male,1965-06-15\n",
		"arrests.csv": "uid,year,offense\na,2000,robbery\na,2001,robbery\n",
		"rates/ncvs_lr_pr.csv": "year,race,age_cat,gender,offense,arrest_rate,arrest_rate_smooth,lambda,lambda_smooth\n" +
			"2000,Black,> 29,Male,robbery,0.5,0.5,1,1\n" +
			"2001,Black,> 29,Male,robbery,0.5,0.5,1,1\n",
		"rates/nsduh_lr_pr.csv": "year,race,age_cat,gender,offense,arrest_rate,arrest_rate_smooth,lambda,lambda_smooth\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
