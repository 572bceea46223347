package palette

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os/exec"
	"strconv"
	"strings"
)

type launcher struct {
	command string
	// index launchers print the picked row number instead of its text.
	index  bool
	markup bool
	rows   bool // supports \0key\x1fvalue row properties
}

var launchers = map[string]*launcher{
	"rofi":   {command: "rofi", index: true, markup: true, rows: true},
	"fuzzel": {command: "fuzzel", index: true},
	"wofi":   {command: "wofi", markup: true},
	"dmenu":  {command: "dmenu"},
}

// runMenu executes the launcher. Replaced in tests.
var runMenu = func(command string, args []string, input string) (string, error) {
	cmd := exec.Command(command, args...)
	cmd.Stdin = strings.NewReader(input)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && !isCancel(err) {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s failed: %s", command, msg)
		}
		return "", fmt.Errorf("%s failed: %w", command, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (l *launcher) Name() string { return l.command }

func (l *launcher) Show(prompt string, items []Item, message string) (Item, error) {
	if len(items) == 0 {
		return Item{}, errors.New("palette: nothing to show")
	}
	labels := l.labels(items)
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = l.row(labels[i], item)
	}

	out, err := runMenu(l.command, l.args(prompt, message, selectedRow(items)), strings.Join(lines, "\n"))
	if err != nil {
		return Item{}, err
	}
	if out == "" {
		return Item{}, ErrCancelled
	}
	return l.pick(out, labels, items)
}

// labels disambiguates duplicate labels for launchers that echo the text.
func (l *launcher) labels(items []Item) []string {
	out := make([]string, len(items))
	seen := make(map[string]int)
	for i, item := range items {
		label := clean(item.Label)
		if !l.index {
			if n := seen[label]; n > 0 {
				label = fmt.Sprintf("%s (%d)", label, n+1)
			}
			seen[clean(item.Label)]++
		}
		out[i] = label
	}
	return out
}

func (l *launcher) args(prompt, message string, selected int) []string {
	switch l.command {
	case "rofi":
		args := []string{"-dmenu", "-i", "-format", "i", "-no-custom", "-markup-rows", "-show-icons"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
		if selected >= 0 {
			args = append(args, "-a", strconv.Itoa(selected), "-selected-row", strconv.Itoa(selected))
		}
		if message != "" {
			args = append(args, "-mesg", message)
		}
		return args
	case "fuzzel":
		args := []string{"--dmenu", "--index"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}
		return args
	case "wofi":
		args := []string{"--dmenu", "--allow-markup"}
		if prompt != "" {
			args = append(args, "--prompt", prompt)
		}
		return args
	default:
		args := []string{"-i"}
		if prompt != "" {
			args = append(args, "-p", prompt)
		}
		return args
	}
}

func (l *launcher) row(label string, item Item) string {
	if l.markup {
		label = html.EscapeString(label)
		if item.Active {
			label = "<b>" + label + "</b>"
		}
	}
	if !l.rows {
		return label
	}
	var attrs []string
	if item.Icon != "" {
		attrs = append(attrs, "icon", field(item.Icon))
	}
	if item.Meta != "" {
		attrs = append(attrs, "meta", field(item.Meta))
	}
	if len(attrs) == 0 {
		return label
	}
	// One NUL, then key/value pairs separated by \x1f.
	return label + "\x00" + strings.Join(attrs, "\x1f")
}

func (l *launcher) pick(out string, labels []string, items []Item) (Item, error) {
	if l.index {
		if i, err := strconv.Atoi(out); err == nil {
			if i < 0 || i >= len(items) {
				return Item{}, fmt.Errorf("palette: index %d out of range", i)
			}
			return items[i], nil
		}
	}
	for i, label := range labels {
		if label == out {
			return items[i], nil
		}
	}
	return Item{}, fmt.Errorf("palette: unknown selection %q", out)
}

func selectedRow(items []Item) int {
	for i, item := range items {
		if item.Active {
			return i
		}
	}
	return -1
}

func clean(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}

func field(s string) string {
	return clean(strings.NewReplacer("\x00", " ", "\x1f", " ").Replace(s))
}

// isCancel reports the exit codes launchers use for "nothing picked".
func isCancel(err error) bool {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return false
	}
	switch exitErr.ExitCode() {
	case 1, 130:
		return true
	}
	return false
}
