package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testdata = "../fixture/testdata"

// writeConfig creates a configuration keeping every store under a
// temporary directory.
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "divvyd.toml")
	content := fmt.Sprintf(`[log]
level = "error"

[metrics]
enabled = true

[snapshot]
backend = "leveldb"
path = %q
compression = "lz4"

[journal]
driver = "sqlite"
dsn = %q
`, filepath.Join(dir, "snapshots"), filepath.Join(dir, "journal.db"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs the root command with fresh flag values.
func execute(t *testing.T, conf string, args ...string) (string, error) {
	t.Helper()
	configFile, debug, quiet, metricsDump = "", false, false, false
	calcVerify, calcAudit, calcJSON, calcFrom, calcSave = false, false, false, "", ""
	batchAudit, batchJSON, batchWorkers = false, false, 0
	compareShowAll = false
	journalLimit = 20

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	if conf != "" {
		args = append([]string{"--conf", conf}, args...)
	}
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "goDivvyd version 0.1.0-dev")
	assert.Contains(t, out, "Default limits: 1000 passes")
}

func TestCalc(t *testing.T) {
	conf := writeConfig(t)
	out, err := execute(t, conf, "calc", filepath.Join(testdata, "cross_currency.json"), "--verify", "--audit")
	require.NoError(t, err, out)
	assert.Contains(t, out, "ok   cross_currency")
	assert.Contains(t, out, "result tesSUCCESS")
	assert.Contains(t, out, "moved ")

	out, err = execute(t, conf, "calc", filepath.Join(testdata, "cross_offer.json"), "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"result": "tesSUCCESS"`)
	assert.Contains(t, out, `"removed": 1`)

	out, err = execute(t, conf, "journal", "-n", "5")
	require.NoError(t, err, out)
	assert.Contains(t, out, "payment")
	assert.Contains(t, out, "cross")
}

func TestCalcReportsMismatch(t *testing.T) {
	data, err := os.ReadFile(filepath.Join(testdata, "direct_iou.json"))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "wrong.json")
	wrong := strings.Replace(string(data), `"value": "10"`, `"value": "11"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(wrong), 0o644))

	out, err := execute(t, writeConfig(t), "calc", path, "--verify")
	require.Error(t, err)
	assert.Contains(t, out, "FAIL direct_iou")
	assert.Contains(t, out, "balance 10, want 11")
}

func TestBatch(t *testing.T) {
	out, err := execute(t, writeConfig(t), "batch", testdata, "--workers", "2", "--audit")
	require.NoError(t, err, out)
	assert.Contains(t, out, "5 scenarios, 0 failed")
}

func TestSnapshotWorkflow(t *testing.T) {
	conf := writeConfig(t)
	scenario := filepath.Join(testdata, "cross_currency.json")

	out, err := execute(t, conf, "snapshot", "import", "market", scenario)
	require.NoError(t, err, out)
	assert.Contains(t, out, "stored market")

	out, err = execute(t, conf, "calc", scenario, "--from", "market", "--save", "settled", "--verify")
	require.NoError(t, err, out)

	out, err = execute(t, conf, "snapshot", "list")
	require.NoError(t, err, out)
	assert.Equal(t, "market\nsettled\n", out)

	out, err = execute(t, conf, "compare", "market", "settled")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added:     0")
	assert.Contains(t, out, "--- Modified ---")
	assert.Contains(t, out, "--- Positions ---")

	out, err = execute(t, conf, "snapshot", "export", "settled")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"name": "settled"`)
	assert.Contains(t, out, `"entries"`)

	_, err = execute(t, conf, "snapshot", "delete", "market")
	require.NoError(t, err)
	_, err = execute(t, conf, "snapshot", "export", "market")
	assert.Error(t, err)
}

func TestMetricsDump(t *testing.T) {
	out, err := execute(t, writeConfig(t), "--metrics", "calc", filepath.Join(testdata, "native.json"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "divvyd_paths_calculations_total{result=\"tesSUCCESS\"} 1")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.toml")
	out, err := execute(t, "", "config", "init", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "wrote "+path)

	// The example journal lives under /var/lib.
	t.Setenv("DIVVYD_JOURNAL_DSN", filepath.Join(t.TempDir(), "journal.db"))
	out, err = execute(t, path, "config", "show")
	require.NoError(t, err, out)
	assert.Contains(t, out, "loaded from "+path)
	assert.Contains(t, out, "leveldb")
}
