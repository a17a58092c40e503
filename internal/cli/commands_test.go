package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/krystal/internal/harness"
)

const (
	goodCapsule = "https://x/s/h1?p=c:eyJiIjozNSwicyI6NDMsInUiOjE3NDkxfQ"
	badCapsule  = "https://x/s/h1?p=c:eyJiIjowLCJzIjowLCJ1IjoxNzQ5MX0"
)

// execute runs the CLI with args and stdin, returning stdout and the exit code.
func execute(t *testing.T, stdin string, args ...string) (string, int) {
	t.Helper()

	out := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), GetExitCode(err)
}

// decodeResponse parses a JSON envelope, keeping numbers exact.
func decodeResponse(t *testing.T, out string) map[string]any {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(out))
	dec.UseNumber()
	var resp map[string]any
	require.NoError(t, dec.Decode(&resp), "output: %s", out)
	return resp
}

func responseData(t *testing.T, out string) map[string]any {
	t.Helper()

	data, ok := decodeResponse(t, out)["data"].(map[string]any)
	require.True(t, ok, "output has no data object: %s", out)
	return data
}

func writeRegistry(t *testing.T, dir, name string, urls ...string) string {
	t.Helper()

	if urls == nil {
		urls = []string{}
	}
	data, err := json.Marshal(map[string][]string{"urls": urls})
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestKKSCommand_Text(t *testing.T) {
	out, code := execute(t, "", "kks", "17491")
	require.Equal(t, ExitSuccess, code)

	harness.AssertGolden(t, "kks_17491", []byte(out))
}

func TestKKSCommand_JSONBigPulse(t *testing.T) {
	out, code := execute(t, "", "--format", "json", "kks", "1000000000000000000000000000000")
	require.Equal(t, ExitSuccess, code)

	data := responseData(t, out)
	assert.Equal(t, json.Number("1000000000000000000000000000000"), data["pulse"])
	assert.Equal(t, json.Number("57171376116820028209430654"), data["dayIndex"])
	assert.Equal(t, json.Number("17"), data["beat"])
	assert.Equal(t, json.Number("16"), data["stepIndex"])
	assert.Equal(t, json.Number("2"), data["pulseInStep"])
	assert.Equal(t, json.Number("8406"), data["gridIndex"])
	assert.Equal(t, json.Number("8439114666"), data["rMu"])
	assert.Equal(t, "17:16:02", data["kairos"])
}

func TestKKSCommand_InvalidPulse(t *testing.T) {
	for _, arg := range []string{"-1", "12.5", "abc"} {
		t.Run(arg, func(t *testing.T) {
			out, code := execute(t, "", "--format", "json", "kks", "--", arg)
			assert.Equal(t, ExitCommandError, code)

			resp := decodeResponse(t, out)
			assert.Equal(t, "error", resp["status"])
			errObj := resp["error"].(map[string]any)
			assert.Equal(t, "INVALID_ARGUMENT", errObj["code"])
		})
	}
}

func TestDecodeURLCommand_Capsule(t *testing.T) {
	out, code := execute(t, "", "--format", "json", "decode-url", goodCapsule)
	require.Equal(t, ExitSuccess, code)

	data := responseData(t, out)
	assert.Equal(t, "content", data["kind"])
	assert.Equal(t, goodCapsule, data["url"])
	assert.Equal(t, "h1", data["artifactHash"])
	assert.Equal(t, json.Number("17491"), data["pulse"])
	assert.Equal(t, json.Number("35"), data["beat"])
	assert.Equal(t, json.Number("43"), data["stepIndex"])
	assert.Equal(t, map[string]any{
		"b": json.Number("35"),
		"s": json.Number("43"),
		"u": json.Number("17491"),
	}, data["payload"])
}

func TestDecodeURLCommand_Text(t *testing.T) {
	out, code := execute(t, "", "decode-url", "https://x/other")
	require.Equal(t, ExitSuccess, code)

	assert.Contains(t, out, "kind          unknown\n")
	assert.Contains(t, out, "artifactHash  -\n")
	assert.Contains(t, out, "payload       -\n")
}

func TestDecodeURLCommand_Malformed(t *testing.T) {
	out, code := execute(t, "", "decode-url", "https://x/stream/p/@@@")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "Error [DECODE_ERROR]")
}

func TestCanonicalizeCommand_Stdin(t *testing.T) {
	out, code := execute(t, `{"b": 1, "a": [true, null, "é"]}`, "canonicalize", "-", "--hash")
	require.Equal(t, ExitSuccess, code)

	assert.Equal(t,
		"{\"a\":[true,null,\"é\"],\"b\":1}\n"+
			"sha256 17c8c6f7f948ee1c9b93b1bc35f6edc29cbaf3022bff7d076d1c4831dd8a44a2\n",
		out)
}

func TestCanonicalizeCommand_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"z": {"y": 2, "x": 1}}`), 0o644))

	out, code := execute(t, "", "--format", "json", "canonicalize", path)
	require.Equal(t, ExitSuccess, code)

	data := responseData(t, out)
	assert.Equal(t, `{"z":{"x":1,"y":2}}`, data["canonical"])
	assert.NotContains(t, data, "sha256")
}

func TestCanonicalizeCommand_RejectsFloat(t *testing.T) {
	out, code := execute(t, `{"x": 1.5}`, "canonicalize", "-")
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "Error [TYPE_MISMATCH]")
}

func TestCanonicalizeCommand_NonFiniteIsDecodeError(t *testing.T) {
	for _, input := range []string{`{"x": NaN}`, `[Infinity]`, `-Infinity`, `"\ud800"`} {
		t.Run(input, func(t *testing.T) {
			out, code := execute(t, input, "--format", "json", "canonicalize", "-")
			assert.Equal(t, ExitCommandError, code)

			resp := decodeResponse(t, out)
			errObj := resp["error"].(map[string]any)
			assert.Equal(t, "DECODE_ERROR", errObj["code"])
		})
	}
}

func TestCanonicalizeCommand_HelpNamesDecodeErrors(t *testing.T) {
	cmd := NewCanonicalizeCommand(&RootOptions{})
	assert.Contains(t, cmd.Long, "NaN and Infinity")
	assert.Contains(t, cmd.Long, "DECODE_ERROR")
}

func TestVerifyRegistryCommand_OK(t *testing.T) {
	path := writeRegistry(t, t.TempDir(), "registry.json", goodCapsule, "https://x/s/abcHASH")

	out, code := execute(t, "", "verify-registry", path)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "2 locator(s), 2 decoded, 0 issue(s)")
}

func TestVerifyRegistryCommand_Mismatch(t *testing.T) {
	path := writeRegistry(t, t.TempDir(), "registry.json", goodCapsule, badCapsule)

	out, code := execute(t, "", "--format", "json", "verify-registry", path)
	assert.Equal(t, ExitFailure, code)

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp["status"])
	data := resp["data"].(map[string]any)
	assert.Equal(t, false, data["ok"])
	assert.Equal(t, json.Number("2"), data["total"])
	assert.NotContains(t, data, "runId")

	issues := data["issues"].([]any)
	require.Len(t, issues, 1)
	issue := issues[0].(map[string]any)
	assert.Equal(t, json.Number("1"), issue["index"])
	assert.Equal(t, "error", issue["level"])
	assert.Equal(t, "kks_mismatch", issue["code"])
	assert.Equal(t, badCapsule, issue["url"])
}

func TestVerifyRegistryCommand_NonStrict(t *testing.T) {
	path := writeRegistry(t, t.TempDir(), "registry.json", "https://x/other")

	_, code := execute(t, "", "verify-registry", path)
	assert.Equal(t, ExitFailure, code)

	out, code := execute(t, "", "verify-registry", "--non-strict", path)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "warn unknown_locator")
}

func TestVerifyRegistryCommand_Workers(t *testing.T) {
	urls := make([]string, 0, 20)
	for i := 0; i < 10; i++ {
		urls = append(urls, goodCapsule, badCapsule)
	}
	path := writeRegistry(t, t.TempDir(), "registry.json", urls...)

	seqOut, seqCode := execute(t, "", "--format", "json", "verify-registry", path)
	parOut, parCode := execute(t, "", "--format", "json", "verify-registry", "--workers", "4", path)

	assert.Equal(t, ExitFailure, seqCode)
	assert.Equal(t, seqCode, parCode)
	assert.Equal(t, seqOut, parOut)
}

func TestVerifyRegistryCommand_MissingFile(t *testing.T) {
	out, code := execute(t, "", "verify-registry", filepath.Join(t.TempDir(), "missing.json"))
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "Error [E005]")
}

func TestVerifyRegistryCommand_SchemaError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"entries": []}`), 0o644))

	out, code := execute(t, "", "verify-registry", path)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "Error [SCHEMA_ERROR]")
}

func TestVerifyRegistryCommand_RecordsHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "audit.db")
	good := writeRegistry(t, dir, "good.json", goodCapsule)
	bad := writeRegistry(t, dir, "bad.json", badCapsule)

	out, code := execute(t, "", "--format", "json", "verify-registry", "--db", dbPath, bad)
	require.Equal(t, ExitFailure, code)
	runID, _ := responseData(t, out)["runId"].(string)
	require.NotEmpty(t, runID)

	_, code = execute(t, "", "verify-registry", "--db", dbPath, good)
	require.Equal(t, ExitSuccess, code)

	out, code = execute(t, "", "--format", "json", "history", "--db", dbPath)
	require.Equal(t, ExitSuccess, code)

	runs := responseData(t, out)["runs"].([]any)
	require.Len(t, runs, 2)
	first := runs[0].(map[string]any)
	second := runs[1].(map[string]any)
	assert.Equal(t, runID, first["id"])
	assert.Equal(t, json.Number("1"), first["seq"])
	assert.Equal(t, false, first["ok"])
	assert.Equal(t, json.Number("1"), first["errors"])
	assert.Equal(t, json.Number("2"), second["seq"])
	assert.Equal(t, true, second["ok"])

	// Filter by the digest of the first registry.
	digest := first["registry"].(string)
	out, code = execute(t, "", "--format", "json", "history", "--db", dbPath, "--registry", digest)
	require.Equal(t, ExitSuccess, code)
	assert.Len(t, responseData(t, out)["runs"].([]any), 1)

	out, code = execute(t, "", "history", "--db", dbPath)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "✗ #1 "+runID)
	assert.Contains(t, out, "✓ #2 ")

	out, code = execute(t, "", "--format", "json", "history", "--db", dbPath, "--run", runID)
	require.Equal(t, ExitSuccess, code)
	run := responseData(t, out)
	assert.Equal(t, runID, run["id"])
	issues := run["issues"].([]any)
	require.Len(t, issues, 1)
	assert.Equal(t, "kks_mismatch", issues[0].(map[string]any)["code"])
	assert.Equal(t, badCapsule, issues[0].(map[string]any)["url"])

	out, code = execute(t, "", "history", "--db", dbPath, "--run", runID)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "[0] error kks_mismatch")
	assert.Contains(t, out, badCapsule)

	_, code = execute(t, "", "history", "--db", dbPath, "--run", "no-such-run")
	assert.Equal(t, ExitCommandError, code)
}

func TestHistoryCommand_MissingDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "missing.db")

	_, code := execute(t, "", "history", "--db", dbPath)
	assert.Equal(t, ExitCommandError, code)

	_, err := os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "history must not create the audit log")
}

func TestHistoryCommand_RequiresDB(t *testing.T) {
	_, code := execute(t, "", "history")
	assert.Equal(t, ExitCommandError, code)
}

func TestNormalizeRegistryCommand(t *testing.T) {
	dir := t.TempDir()
	input := writeRegistry(t, dir, "in.json", badCapsule, "https://x/other")
	output := filepath.Join(dir, "out.json")

	out, code := execute(t, "", "--format", "json", "normalize-registry", input, output)
	require.Equal(t, ExitSuccess, code)

	data := responseData(t, out)
	assert.Equal(t, true, data["ok"])
	assert.Equal(t, json.Number("1"), data["fixedCapsules"])
	assert.Equal(t, json.Number("2"), data["total"])
	assert.Equal(t, output, data["output"])

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"urls\": [\n    \""+goodCapsule+"\",\n    \"https://x/other\"\n  ]\n}\n", string(written))

	_, code = execute(t, "", "verify-registry", "--non-strict", output)
	assert.Equal(t, ExitSuccess, code)
}

func TestNormalizeRegistryCommand_Text(t *testing.T) {
	dir := t.TempDir()
	input := writeRegistry(t, dir, "in.json", goodCapsule)
	output := filepath.Join(dir, "out.json")

	out, code := execute(t, "", "normalize-registry", input, output)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "✓ fixed 0 of 1 locator(s), wrote "+output+"\n", out)
}

func TestLintRegistryCommand(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid", func(t *testing.T) {
		path := writeRegistry(t, dir, "valid.json", goodCapsule)
		out, code := execute(t, "", "lint-registry", path)
		assert.Equal(t, ExitSuccess, code)
		assert.Contains(t, out, "matches the registry schema")
	})

	t.Run("violations", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.json")
		require.NoError(t, os.WriteFile(path, []byte("{\"urls\": [1, \"ok\", true]}"), 0o644))

		out, code := execute(t, "", "--format", "json", "lint-registry", path)
		assert.Equal(t, ExitFailure, code)

		resp := decodeResponse(t, out)
		assert.Equal(t, "error", resp["status"])
		data := resp["data"].(map[string]any)
		assert.Equal(t, false, data["valid"])
		assert.NotEmpty(t, data["violations"])
	})

	t.Run("not json", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

		_, code := execute(t, "", "lint-registry", path)
		assert.Equal(t, ExitCommandError, code)
	})

	t.Run("missing file", func(t *testing.T) {
		_, code := execute(t, "", "lint-registry", filepath.Join(dir, "missing.json"))
		assert.Equal(t, ExitCommandError, code)
	})
}

const cliSuite = `name: cli
description: coordinate and canonical vectors
kks:
  - pulse: "17491"
    expect: {beat: 35, stepIndex: 43, kairos: "35:43:10"}
kcs:
  - name: sorted
    input: '{"b": 1, "a": 2}'
    canonical: '{"a":2,"b":1}'
`

func TestConformCommand_Snapshots(t *testing.T) {
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "cli.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte(cliSuite), 0o644))

	out, code := execute(t, "", "conform", suitePath)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "✓ cli (2 checks, snapshot missing)")

	out, code = execute(t, "", "conform", "--update", suitePath)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "snapshot written")
	assert.FileExists(t, filepath.Join(dir, "cli.golden"))

	out, code = execute(t, "", "--format", "json", "conform", suitePath)
	require.Equal(t, ExitSuccess, code)
	data := responseData(t, out)
	assert.Equal(t, json.Number("1"), data["passed"])
	assert.Equal(t, json.Number("0"), data["failed"])
	suites := data["suites"].([]any)
	require.Len(t, suites, 1)
	assert.Equal(t, "match", suites[0].(map[string]any)["snapshot"])

	require.NoError(t, os.WriteFile(filepath.Join(dir, "cli.golden"), []byte("stale\n"), 0o644))
	out, code = execute(t, "", "conform", suitePath)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "snapshot differs")
}

func TestConformCommand_FailingVector(t *testing.T) {
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "wrong.yaml")
	suite := strings.Replace(cliSuite, "beat: 35", "beat: 34", 1)
	require.NoError(t, os.WriteFile(suitePath, []byte(suite), 0o644))

	out, code := execute(t, "", "conform", suitePath)
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, out, "✗ cli")
	assert.Contains(t, out, "0 passed, 1 failed, 1 total")
}

func TestConformCommand_InvalidSuite(t *testing.T) {
	dir := t.TempDir()
	suitePath := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(suitePath, []byte("name: empty\n"), 0o644))

	out, code := execute(t, "", "conform", suitePath)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, out, "has no vectors")
}

func TestConformCommand_RepositorySuite(t *testing.T) {
	suitePath := filepath.Join("..", "harness", "testdata", "basics.yaml")

	out, code := execute(t, "", "--format", "json", "conform", suitePath)
	require.Equal(t, ExitSuccess, code, out)
	assert.Equal(t, json.Number("1"), responseData(t, out)["passed"])
}
