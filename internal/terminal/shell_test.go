package terminal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envValue(env []string, key string) (string, bool) {
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok && k == key {
			return v, true
		}
	}
	return "", false
}

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		shell string
		want  Family
	}{
		{"/bin/zsh", FamilyZsh},
		{"/usr/local/bin/zsh", FamilyZsh},
		{"/bin/bash", FamilyBash},
		{"/opt/homebrew/bin/bash", FamilyBash},
		{"/bin/sh", FamilyOther},
		{"/usr/bin/fish", FamilyOther},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFamily(tt.shell))
		})
	}
}

func TestInteractiveInvocation(t *testing.T) {
	t.Setenv("TMUX", "/tmp/tmux-0/default,1,0")
	t.Setenv("TERM", "dumb")

	b := ShellBuilder{Path: "/bin/zsh", Marker: "PTYHOST"}
	inv := b.Interactive("/home/u/projects/api")

	assert.Equal(t, "/bin/zsh", inv.Path)
	assert.Equal(t, []string{"--no-rcs"}, inv.Args)

	term, _ := envValue(inv.Env, "TERM")
	assert.Equal(t, "xterm-256color", term)
	color, _ := envValue(inv.Env, "COLORTERM")
	assert.Equal(t, "truecolor", color)
	marker, ok := envValue(inv.Env, "PTYHOST")
	require.True(t, ok)
	assert.Equal(t, "1", marker)
	ps1, _ := envValue(inv.Env, "PS1")
	assert.Equal(t, "%F{cyan}api%f %F{blue}$%f ", ps1)

	_, hasTmux := envValue(inv.Env, "TMUX")
	assert.False(t, hasTmux)
}

func TestOneShotInvocation(t *testing.T) {
	b := ShellBuilder{Path: "/bin/bash", Marker: "PTYHOST"}
	inv := b.OneShot("make build")

	assert.Equal(t, []string{"--norc", "--noprofile", "-c", "make build"}, inv.Args)
	_, hasMarker := envValue(inv.Env, "PTYHOST")
	assert.False(t, hasMarker)
	_, hasPrompt := envValue(inv.Env, "PS1")
	assert.False(t, hasPrompt)
}

func TestPrompt(t *testing.T) {
	assert.Equal(t, `\[\033[36m\]web\[\033[0m\] \[\033[34m\]$\[\033[0m\] `, Prompt(FamilyBash, "/srv/web"))
	assert.Equal(t, "web $ ", Prompt(FamilyOther, "/srv/web"))
	assert.Equal(t, "%F{cyan}/%f %F{blue}$%f ", Prompt(FamilyZsh, "/"))
}

func TestCommandLine(t *testing.T) {
	b := ShellBuilder{Path: "/bin/bash", Marker: "PTYHOST"}

	t.Run("command", func(t *testing.T) {
		got := b.CommandLine("/work", "echo 'hi'")
		assert.Equal(t, `/bin/bash --norc --noprofile -c 'echo '\''hi'\'''`, got)
	})

	t.Run("interactive", func(t *testing.T) {
		got := b.CommandLine("/work/it's", "")
		assert.True(t, strings.HasPrefix(got, "/usr/bin/env TERM=xterm-256color COLORTERM=truecolor PTYHOST='1' PS1="))
		assert.Contains(t, got, `it'\''s`)
		assert.True(t, strings.HasSuffix(got, " /bin/bash --norc --noprofile"))
	})
}

func TestDefaultCommand(t *testing.T) {
	assert.Equal(t, "/bin/zsh --no-rcs", ShellBuilder{Path: "/bin/zsh"}.DefaultCommand())
	assert.Equal(t, "/bin/sh", ShellBuilder{Path: "/bin/sh"}.DefaultCommand())
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, Quote("plain"))
	assert.Equal(t, `'a'\''b'`, Quote("a'b"))
}

func TestNewShellBuilderFallsBackToEnv(t *testing.T) {
	t.Setenv("SHELL", "/bin/zsh")
	assert.Equal(t, "/bin/zsh", NewShellBuilder("", "").Path)
	assert.Equal(t, "/bin/sh", NewShellBuilder("/bin/sh", "").Path)
}
