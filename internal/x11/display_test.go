package x11

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSessionEnv_UsesExistingEnv(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":99", "/tmp/should-not-be-used" },
		func(string) string { return ":88" },
	)
	defer restore()

	env, err := SessionEnv([]string{
		"HOME=" + t.TempDir(),
		"DISPLAY=:7",
		"XAUTHORITY=/tmp/xauth-existing",
	})
	if err != nil {
		t.Fatalf("SessionEnv returned error: %v", err)
	}
	if got := envLookup(env, "DISPLAY"); got != ":7" {
		t.Fatalf("DISPLAY = %q, want %q", got, ":7")
	}
	if got := envLookup(env, "XAUTHORITY"); got != "/tmp/xauth-existing" {
		t.Fatalf("XAUTHORITY = %q, want %q", got, "/tmp/xauth-existing")
	}
}

func TestSessionEnv_FallsBackToSocketAndHomeXAuthority(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return ":1" },
	)
	defer restore()

	home := t.TempDir()
	xauth := filepath.Join(home, ".Xauthority")
	if err := os.WriteFile(xauth, []byte("cookie"), 0600); err != nil {
		t.Fatalf("write xauthority: %v", err)
	}

	env, err := SessionEnv([]string{"HOME=" + home})
	if err != nil {
		t.Fatalf("SessionEnv returned error: %v", err)
	}
	if got := envLookup(env, "DISPLAY"); got != ":1" {
		t.Fatalf("DISPLAY = %q, want %q", got, ":1")
	}
	if got := envLookup(env, "XAUTHORITY"); got != xauth {
		t.Fatalf("XAUTHORITY = %q, want %q", got, xauth)
	}
}

func TestSessionEnv_UsesDetectedValues(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return ":5", "/tmp/xauth-detected" },
		func(string) string { return "" },
	)
	defer restore()

	env, err := SessionEnv([]string{"HOME=" + t.TempDir()})
	if err != nil {
		t.Fatalf("SessionEnv returned error: %v", err)
	}
	if got := envLookup(env, "DISPLAY"); got != ":5" {
		t.Fatalf("DISPLAY = %q, want %q", got, ":5")
	}
	if got := envLookup(env, "XAUTHORITY"); got != "/tmp/xauth-detected" {
		t.Fatalf("XAUTHORITY = %q, want %q", got, "/tmp/xauth-detected")
	}
}

func TestSessionEnv_NoDisplay(t *testing.T) {
	restore := stubDetectFns(
		func() (string, string) { return "", "" },
		func(string) string { return "" },
	)
	defer restore()

	if _, err := SessionEnv([]string{"HOME=" + t.TempDir()}); !errors.Is(err, ErrNoDisplay) {
		t.Fatalf("SessionEnv error = %v, want ErrNoDisplay", err)
	}
}

func TestDetectDisplayFromSockets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"X0", "X2", "not-a-display"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte{}, 0600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if got := detectDisplayFromSockets(dir); got != ":2" {
		t.Fatalf("detectDisplayFromSockets = %q, want %q", got, ":2")
	}
}

func TestParseLoginctlSessions(t *testing.T) {
	out := strings.Join([]string{
		"1 1000 george seat0",
		"2 1001 alice seat0",
		"3 1000 george seat1",
		"",
	}, "\n")
	got := parseLoginctlSessions(out, "1000")
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("parseLoginctlSessions = %v, want [1 3]", got)
	}
}

func TestReadProcEnviron(t *testing.T) {
	orig := readFileFn
	defer func() { readFileFn = orig }()
	readFileFn = func(string) ([]byte, error) {
		return []byte("DISPLAY=:3\x00XAUTHORITY=/run/xauth\x00junk\x00"), nil
	}
	env, err := readProcEnviron("42")
	if err != nil {
		t.Fatal(err)
	}
	if env["DISPLAY"] != ":3" || env["XAUTHORITY"] != "/run/xauth" || len(env) != 2 {
		t.Fatalf("readProcEnviron = %v", env)
	}
}

func stubDetectFns(
	detectSession func() (string, string),
	detectSocket func(string) string,
) func() {
	origSession := detectSessionX11EnvFn
	origSocket := detectDisplayFromSocketFn
	detectSessionX11EnvFn = detectSession
	detectDisplayFromSocketFn = detectSocket
	return func() {
		detectSessionX11EnvFn = origSession
		detectDisplayFromSocketFn = origSocket
	}
}
