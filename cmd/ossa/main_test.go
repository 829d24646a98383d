package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const borrowSrc = `func @b {
bb0(%y : @owned $T):
  %b = begin_borrow %y
  use %b
  consume %y
  return
}
`

const borrowCompleted = `func @b {
bb0(%y : @owned $T):
  %b = begin_borrow %y
  use %b
  end_borrow %b
  consume %y
  return
}
`

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--color", "off", "--ui", "off"}, args...))
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// writeFile creates name in a fresh directory holding an empty ossa.toml,
// so that the lookup never leaves the test directory.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ossa.toml"), nil, 0o644))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompletePrintsModule(t *testing.T) {
	path := writeFile(t, "in.sil", borrowSrc)
	out, _, err := runCLI(t, "complete", path)
	require.NoError(t, err)
	require.Equal(t, borrowCompleted, out)
}

func TestCompleteYAMLReport(t *testing.T) {
	path := writeFile(t, "in.sil", borrowSrc)
	out, _, err := runCLI(t, "--format", "yaml", "complete", path, "--value", "%b")
	require.NoError(t, err)
	require.Contains(t, out, "mode: complete")
	require.Contains(t, out, "value: '%b'")
	require.Contains(t, out, "outcome: was-completed")
	require.Contains(t, out, "instr: end_borrow %b")
}

func TestCompleteUnknownValue(t *testing.T) {
	path := writeFile(t, "in.sil", borrowSrc)
	_, _, err := runCLI(t, "complete", path, "--value", "%nope")
	require.ErrorContains(t, err, "value not found")
}

func TestCompleteOutputThenFmt(t *testing.T) {
	path := writeFile(t, "in.sil", borrowSrc)
	packed := filepath.Join(filepath.Dir(path), "out.msgpack")

	out, _, err := runCLI(t, "complete", path, "-o", packed)
	require.NoError(t, err)
	require.Contains(t, out, "complete "+path+" (changed)")

	out, _, err = runCLI(t, "fmt", packed)
	require.NoError(t, err)
	require.Equal(t, borrowCompleted, out)
}

func TestCompleteTimings(t *testing.T) {
	path := writeFile(t, "in.sil", borrowSrc)
	_, errOut, err := runCLI(t, "--timings", "complete", path)
	require.NoError(t, err)
	for _, phase := range []string{"timings:", "read", "complete", "emit", "total"} {
		require.Contains(t, errOut, phase)
	}
}

func TestConfigUnknownKey(t *testing.T) {
	path := writeFile(t, "in.sil", borrowSrc)
	cfg := filepath.Join(filepath.Dir(path), "ossa.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[completion]\nboundry = \"liveness\"\n"), 0o644))
	_, _, err := runCLI(t, "complete", path)
	require.ErrorContains(t, err, "unknown keys: completion.boundry")
}

func TestUnreachable(t *testing.T) {
	path := writeFile(t, "in.sil", `func @main {
bb0:
  %x = new $T
  %c = const $Bool
  cond_br %c, bb1, bb3
bb1:
  apply [noreturn] @fatal()
  br bb2
bb2:
  destroy_value %x
  return
bb3:
  destroy_value %x
  return
}
`)
	out, _, err := runCLI(t, "unreachable", path)
	require.NoError(t, err)
	require.Equal(t, `func @main {
bb0:
  %x = new $T
  %c = const $Bool
  cond_br %c, bb1, bb3
bb1:
  apply [noreturn] @fatal()
  destroy_value %x [dead_end]
  unreachable
bb3:
  destroy_value %x
  return
}
`, out)
}

func TestVerify(t *testing.T) {
	good := writeFile(t, "good.sil", borrowCompleted)
	out, _, err := runCLI(t, "verify", good)
	require.NoError(t, err)
	require.Equal(t, "ok @b\n", out)

	bad := writeFile(t, "bad.sil", borrowSrc)
	out, _, err = runCLI(t, "verify", bad)
	require.Error(t, err)
	require.Equal(t, "incomplete @b\n", out)
	require.Contains(t, err.Error(), "1 function(s) with incomplete lifetimes")
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	path := writeFile(t, "in.sil", "func @f {\nbb0:\n  use %missing\n  return\n}\n")
	_, _, err := runCLI(t, "verify", path)
	require.Error(t, err)
}

func TestBoundary(t *testing.T) {
	path := writeFile(t, "in.sil", `func @f {
bb0:
  %x = new $T
  use %x
  unreachable
}
`)
	out, _, err := runCLI(t, "boundary", path, "--value", "%x")
	require.NoError(t, err)
	require.Equal(t, `@f %x
last users:
  bb0: use %x
outside linear liveness:
  bb0: use %x
availability boundary:
  bb0: unreachable (boundary)
  bb0: unreachable (loop)
`, out)
}

func TestBoundaryAtReturnFails(t *testing.T) {
	path := writeFile(t, "in.sil", `func @f {
bb0:
  %x = new $T
  use %x
  return
}
`)
	out, _, err := runCLI(t, "boundary", path, "--value", "%x")
	require.ErrorContains(t, err, "OSSA1001")
	require.True(t, strings.HasPrefix(out, "@f %x\n"))
}

func TestFmtMsgpackRoundTrip(t *testing.T) {
	path := writeFile(t, "in.sil", borrowSrc)
	packed, _, err := runCLI(t, "fmt", path, "--emit", "msgpack")
	require.NoError(t, err)
	require.NotEmpty(t, packed)
	require.GreaterOrEqual(t, packed[0], byte(0x80))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetIn(strings.NewReader(packed))
	root.SetArgs([]string{"--color", "off", "fmt", "-"})
	require.NoError(t, root.Execute())
	require.Equal(t, borrowSrc, out.String())
}

func TestVersion(t *testing.T) {
	out, _, err := runCLI(t, "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "ossa "))

	out, _, err = runCLI(t, "--format", "yaml", "version", "--full")
	require.NoError(t, err)
	require.Contains(t, out, "tool: ossa")
	require.Contains(t, out, "git_commit: unknown")
}

func TestReadColorMode(t *testing.T) {
	tty := func() bool { return true }
	for in, want := range map[string]bool{"auto": true, "on": true, "off": false, "never": false} {
		got, err := readColorMode(in, tty)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := readColorMode("sometimes", tty)
	require.Error(t, err)
}

func TestCompleteWritesProfiles(t *testing.T) {
	path := writeFile(t, "in.sil", borrowSrc)
	cpu := filepath.Join(filepath.Dir(path), "cpu.pprof")
	mem := filepath.Join(filepath.Dir(path), "mem.pprof")
	_, _, err := runCLI(t, "--cpu-profile", cpu, "--mem-profile", mem, "complete", path)
	require.NoError(t, err)
	require.FileExists(t, cpu)
	require.FileExists(t, mem)
}
