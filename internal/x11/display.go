package x11

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

var (
	runCommandOutputFn        = runCommandOutput
	readFileFn                = os.ReadFile
	readDirFn                 = os.ReadDir
	detectSessionX11EnvFn     = detectSessionX11Env
	detectDisplayFromSocketFn = detectDisplayFromSockets
)

// ErrNoDisplay is returned when no X display can be found.
var ErrNoDisplay = errors.New("no X display found; export DISPLAY or start the daemon from the graphical session")

// SessionEnv returns env with DISPLAY and XAUTHORITY filled in when they
// are missing, as happens when the daemon is started by a service manager
// outside the graphical session.
func SessionEnv(env []string) ([]string, error) {
	display := strings.TrimSpace(envLookup(env, "DISPLAY"))
	xauthority := strings.TrimSpace(envLookup(env, "XAUTHORITY"))

	if display == "" || xauthority == "" {
		detectedDisplay, detectedXAuthority := detectSessionX11EnvFn()
		if display == "" {
			display = strings.TrimSpace(detectedDisplay)
		}
		if xauthority == "" {
			xauthority = strings.TrimSpace(detectedXAuthority)
		}
	}

	if display == "" {
		display = detectDisplayFromSocketFn("/tmp/.X11-unix")
	}
	if display == "" {
		return env, ErrNoDisplay
	}

	if xauthority == "" {
		home := strings.TrimSpace(envLookup(env, "HOME"))
		if home == "" {
			if detectedHome, err := os.UserHomeDir(); err == nil {
				home = detectedHome
			}
		}
		if home != "" {
			candidate := filepath.Join(home, ".Xauthority")
			if _, err := os.Stat(candidate); err == nil {
				xauthority = candidate
			}
		}
	}

	env = upsertEnv(env, "DISPLAY", display)
	if xauthority != "" {
		env = upsertEnv(env, "XAUTHORITY", xauthority)
	}
	return env, nil
}

// EnsureDisplay applies SessionEnv to the process environment so that the
// X connection can be opened.
func EnsureDisplay() error {
	if os.Getenv("DISPLAY") != "" {
		return nil
	}
	env, err := SessionEnv(os.Environ())
	if err != nil {
		return err
	}
	for _, key := range []string{"DISPLAY", "XAUTHORITY"} {
		if v := envLookup(env, key); v != "" {
			if err := os.Setenv(key, v); err != nil {
				return fmt.Errorf("failed to set %s: %w", key, err)
			}
		}
	}
	return nil
}

func runCommandOutput(name string, args ...string) (string, error) {
	out, err := exec.Command(name, args...).Output()
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func detectSessionX11Env() (display string, xauthority string) {
	uid := strconv.Itoa(os.Getuid())
	out, err := runCommandOutputFn("loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return "", ""
	}
	for _, sessionID := range parseLoginctlSessions(out, uid) {
		d := strings.TrimSpace(loginctlShowSessionProp(sessionID, "Display"))
		if d == "" || strings.EqualFold(d, "n/a") {
			continue
		}

		xauth := ""
		leader := strings.TrimSpace(loginctlShowSessionProp(sessionID, "Leader"))
		if leader != "" && leader != "0" {
			if envMap, err := readProcEnviron(leader); err == nil {
				if ed := strings.TrimSpace(envMap["DISPLAY"]); ed != "" {
					d = ed
				}
				xauth = strings.TrimSpace(envMap["XAUTHORITY"])
			}
		}
		return d, xauth
	}
	return "", ""
}

func parseLoginctlSessions(output string, uid string) []string {
	var sessions []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) < 2 {
			continue
		}
		if fields[1] == uid {
			sessions = append(sessions, fields[0])
		}
	}
	return sessions
}

func loginctlShowSessionProp(sessionID string, prop string) string {
	out, err := runCommandOutputFn("loginctl", "show-session", sessionID, "-p", prop, "--value")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

func readProcEnviron(pid string) (map[string]string, error) {
	data, err := readFileFn(filepath.Join("/proc", pid, "environ"))
	if err != nil {
		return nil, err
	}

	env := make(map[string]string)
	for _, part := range strings.Split(string(data), "\x00") {
		if k, v, ok := strings.Cut(part, "="); ok {
			env[k] = v
		}
	}
	return env, nil
}

func detectDisplayFromSockets(dir string) string {
	entries, err := readDirFn(dir)
	if err != nil {
		return ""
	}

	var displays []int
	for _, entry := range entries {
		name := entry.Name()
		if len(name) < 2 || name[0] != 'X' {
			continue
		}
		n, err := strconv.Atoi(name[1:])
		if err != nil {
			continue
		}
		displays = append(displays, n)
	}

	if len(displays) == 0 {
		return ""
	}
	sort.Ints(displays)
	return fmt.Sprintf(":%d", displays[len(displays)-1])
}

func envLookup(env []string, key string) string {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return strings.TrimPrefix(e, prefix)
		}
	}
	return ""
}

func upsertEnv(env []string, key string, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
