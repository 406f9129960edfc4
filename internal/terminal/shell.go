package terminal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GriffinCanCode/ptyhost/internal/tmux"
)

// Family groups shells by the flags that disable their startup files.
type Family int

const (
	FamilyOther Family = iota
	FamilyBash
	FamilyZsh
)

func (f Family) String() string {
	switch f {
	case FamilyBash:
		return "bash"
	case FamilyZsh:
		return "zsh"
	default:
		return "other"
	}
}

// DetectFamily classifies a shell by its executable name.
func DetectFamily(shell string) Family {
	base := filepath.Base(shell)
	switch {
	case strings.HasSuffix(base, "zsh"):
		return FamilyZsh
	case strings.HasSuffix(base, "bash"):
		return FamilyBash
	default:
		return FamilyOther
	}
}

const (
	envTerm      = "TERM=xterm-256color"
	envColorTerm = "COLORTERM=truecolor"
	envWrapper   = "/usr/bin/env"
)

// Invocation is a fully resolved process to spawn.
type Invocation struct {
	Path string
	Args []string
	Env  []string
}

// ShellBuilder builds rc-free shell invocations.
type ShellBuilder struct {
	Path   string
	Marker string
}

// NewShellBuilder resolves the shell to use. An empty path falls back to
// $SHELL, then /bin/bash, then /bin/sh.
func NewShellBuilder(path, marker string) ShellBuilder {
	if path == "" {
		path = os.Getenv("SHELL")
	}
	if path == "" {
		path = "/bin/bash"
		if _, err := os.Stat(path); err != nil {
			path = "/bin/sh"
		}
	}
	return ShellBuilder{Path: path, Marker: marker}
}

// Family returns the shell family.
func (b ShellBuilder) Family() Family {
	return DetectFamily(b.Path)
}

func (b ShellBuilder) cleanFlags() []string {
	switch b.Family() {
	case FamilyZsh:
		return []string{"--no-rcs"}
	case FamilyBash:
		return []string{"--norc", "--noprofile"}
	default:
		return nil
	}
}

// Interactive returns an interactive shell for dir, marked as managed and
// with a prompt showing the directory's leaf name.
func (b ShellBuilder) Interactive(dir string) Invocation {
	env := baseEnv()
	for _, kv := range b.interactiveVars(dir) {
		env = setEnv(env, kv)
	}
	return Invocation{
		Path: b.Path,
		Args: b.cleanFlags(),
		Env:  env,
	}
}

// OneShot returns a shell running command and exiting.
func (b ShellBuilder) OneShot(command string) Invocation {
	args := append(b.cleanFlags(), "-c", command)
	return Invocation{
		Path: b.Path,
		Args: args,
		Env:  baseEnv(),
	}
}

// DefaultCommand is the tmux default-command for new panes.
func (b ShellBuilder) DefaultCommand() string {
	return strings.Join(append([]string{b.Path}, b.cleanFlags()...), " ")
}

// CommandLine renders the invocation as a single shell command string for
// tmux new-session. Interactive shells are wrapped in /usr/bin/env since the
// tmux server's environment, not ours, reaches the pane.
func (b ShellBuilder) CommandLine(dir, command string) string {
	if command != "" {
		return b.DefaultCommand() + " -c " + Quote(command)
	}

	parts := []string{envWrapper}
	for _, kv := range b.interactiveVars(dir) {
		key, value, _ := strings.Cut(kv, "=")
		if key == "TERM" || key == "COLORTERM" {
			parts = append(parts, kv)
			continue
		}
		parts = append(parts, key+"="+Quote(value))
	}
	parts = append(parts, b.DefaultCommand())
	return strings.Join(parts, " ")
}

func (b ShellBuilder) interactiveVars(dir string) []string {
	vars := []string{envTerm, envColorTerm}
	if b.Marker != "" {
		vars = append(vars, b.Marker+"=1")
	}
	return append(vars, "PS1="+Prompt(b.Family(), dir))
}

// Prompt renders the synthesized prompt for a working directory.
func Prompt(family Family, dir string) string {
	leaf := dirLeaf(dir)
	switch family {
	case FamilyZsh:
		return fmt.Sprintf("%%F{cyan}%s%%f %%F{blue}$%%f ", leaf)
	case FamilyBash:
		return fmt.Sprintf(`\[\033[36m\]%s\[\033[0m\] \[\033[34m\]$\[\033[0m\] `, leaf)
	default:
		return leaf + " $ "
	}
}

func dirLeaf(dir string) string {
	leaf := filepath.Base(dir)
	if leaf == "." || leaf == string(filepath.Separator) {
		return dir
	}
	return leaf
}

// Quote wraps s in single quotes for a POSIX shell.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func baseEnv() []string {
	env := tmux.CleanEnv(os.Environ())
	env = setEnv(env, envTerm)
	return setEnv(env, envColorTerm)
}

// setEnv replaces or appends a KEY=VALUE entry.
func setEnv(env []string, kv string) []string {
	key, _, _ := strings.Cut(kv, "=")
	prefix := key + "="
	for i, existing := range env {
		if strings.HasPrefix(existing, prefix) {
			env[i] = kv
			return env
		}
	}
	return append(env, kv)
}
