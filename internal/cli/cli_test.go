package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/markovbot/internal/config"
)

type testEnv struct {
	dir  string
	args []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("limit: 60\nmax_attempts: 50\n"), 0600))
	return &testEnv{dir: dir, args: []string{"--config", cfgPath, "--db", filepath.Join(dir, "bot.db")}}
}

// resetFlags restores every flag to its default; cobra keeps values between
// Execute calls on the shared RootCmd.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (e *testEnv) run(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags(RootCmd)
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(&out)
	RootCmd.SetArgs(append(args, e.args...))
	require.NoError(t, RootCmd.Execute())
	return out.String()
}

func (e *testEnv) file(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0600))
	return p
}

func TestIngestGenerateTweet(t *testing.T) {
	env := newTestEnv(t)
	text := env.file(t, "cats.txt", "The cat sat. The cat ran.")

	out := env.run(t, "ingest", text, "-c", "animals")
	var results []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "animals", results[0]["corpus"])
	assert.Equal(t, float64(4), results[0]["triples"])

	sentence := strings.TrimSpace(env.run(t, "generate", "-c", "animals", "-s", "The cat", "-w", "2"))
	assert.Contains(t, []string{"The cat sat.", "The cat ran."}, sentence)

	env.run(t, "ingest", env.file(t, "loop.txt", "The cat sat. The cat sat."), "-c", "loop")
	post := strings.TrimSpace(env.run(t, "tweet", "-c", "loop", "-s", "The cat", "--prefix", "@bob", "--suffix", "#cats"))
	assert.True(t, strings.HasPrefix(post, "@bob The cat"), post)
	assert.True(t, strings.HasSuffix(post, "sat. #cats"), post)
	assert.LessOrEqual(t, len([]rune(post)), 60)
}

func TestCorporaKeysClear(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "ingest", env.file(t, "a.txt", "The cat sat. The cat ran."))
	env.run(t, "ingest", env.file(t, "b.txt", "Der Hund lief weg."), "-c", "de")

	var rows []corpusRow
	require.NoError(t, json.Unmarshal([]byte(env.run(t, "corpora")), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, corpusRow{Name: "de", Keys: 2, Successors: 2}, rows[0])
	assert.Equal(t, corpusRow{Name: "default", Keys: 3, Successors: 4}, rows[1])

	pairs := env.run(t, "keys", "cat", "--pairs")
	assert.Equal(t, "The cat\ncat sat.\n", pairs)

	env.run(t, "clear", "de")
	rows = nil
	require.NoError(t, json.Unmarshal([]byte(env.run(t, "corpora")), &rows))
	assert.Len(t, rows, 1)
}

func TestResponsesAndExportImport(t *testing.T) {
	env := newTestEnv(t)
	env.run(t, "ingest", env.file(t, "a.txt", "one two three four"))
	env.run(t, "responses", "set", env.file(t, "r.yaml", "hello: [Hi!, Hey!]\nbye: Later.\n"))

	var responses map[string][]string
	require.NoError(t, json.Unmarshal([]byte(env.run(t, "responses", "list")), &responses))
	assert.Equal(t, []string{"Later."}, responses["bye"])
	assert.Len(t, responses["hello"], 2)

	exported := env.file(t, "export.json", env.run(t, "export"))

	other := newTestEnv(t)
	out := other.run(t, "import", exported)
	assert.Contains(t, out, `"ok":true`)

	var imported map[string][]string
	require.NoError(t, json.Unmarshal([]byte(other.run(t, "responses", "list")), &imported))
	assert.Equal(t, responses, imported)

	var rows []corpusRow
	require.NoError(t, json.Unmarshal([]byte(other.run(t, "corpora")), &rows))
	assert.Equal(t, []corpusRow{{Name: "default", Keys: 2, Successors: 2}}, rows)
}

func TestPostsAndStatsEmpty(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, "[]\n", env.run(t, "posts"))

	var stats map[string]any
	require.NoError(t, json.Unmarshal([]byte(env.run(t, "stats")), &stats))
	assert.Equal(t, float64(0), stats["total_posts"])
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "nested", "init.yaml")

	out := env.run(t, "config", "init", path)
	assert.Contains(t, out, `"ok": true`)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Limit, loaded.Limit)
	assert.Equal(t, config.Default().SupervisorTick, loaded.SupervisorTick)
	assert.Nil(t, loaded.Reshare)

	require.NoError(t, os.WriteFile(path, []byte("limit: 10\n"), 0600))
	env.run(t, "config", "init", path, "--force")
	loaded, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Limit, loaded.Limit)
}
