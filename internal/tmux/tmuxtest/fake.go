// Package tmuxtest provides an in-memory tmux server for tests. It follows
// real tmux target and format rules: session commands accept "=name", window
// and pane commands need "=name:", and -F output escapes control characters.
package tmuxtest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/GriffinCanCode/ptyhost/internal/tmux"
)

// Session is the fake server's record of a session.
type Session struct {
	Name    string
	Dir     string
	Cols    int
	Rows    int
	Command string
	Options map[string]string
	Created time.Time
}

// Runner implements tmux.Runner against an in-memory session table.
type Runner struct {
	mu       sync.Mutex
	sessions map[string]*Session
	calls    [][]string
	fail     map[string]error
	finish   bool
}

// NewRunner creates an empty fake server.
func NewRunner() *Runner {
	return &Runner{
		sessions: make(map[string]*Session),
		fail:     make(map[string]error),
	}
}

// Add registers a pre-existing session, as if created out of band.
func (r *Runner) Add(name, dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[name] = &Session{Name: name, Dir: dir, Options: map[string]string{}, Created: time.Now()}
}

// Remove deletes a session, as if killed out of band.
func (r *Runner) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, name)
}

// Has reports whether the fake server holds name.
func (r *Runner) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[name]
	return ok
}

// Get returns a copy of the named session.
func (r *Runner) Get(name string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[name]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Names returns all session names, sorted.
func (r *Runner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.sessions))
	for name := range r.sessions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FailOn makes every invocation of subcommand return err.
func (r *Runner) FailOn(subcommand string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[subcommand] = err
}

// FinishCommands makes sessions started with a command end immediately,
// as tmux does when a short command exits before anyone attaches.
func (r *Runner) FinishCommands() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finish = true
}

// Calls returns the argv of every invocation so far.
func (r *Runner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	copy(out, r.calls)
	return out
}

// Run dispatches a tmux subcommand.
func (r *Runner) Run(_ context.Context, _ string, args ...string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, append([]string(nil), args...))
	if len(args) == 0 {
		return "", fmt.Errorf("%w: no subcommand", tmux.ErrCommandFailed)
	}
	if err, ok := r.fail[args[0]]; ok {
		return "", err
	}

	flags, rest := parseFlags(args[1:])
	switch args[0] {
	case "-V":
		return "tmux 3.4", nil
	case "new-session":
		name := flags["-s"]
		if _, ok := r.sessions[name]; ok {
			return "", failed("duplicate session: %s", name)
		}
		cols, _ := strconv.Atoi(flags["-x"])
		rows, _ := strconv.Atoi(flags["-y"])
		s := &Session{
			Name:    name,
			Dir:     flags["-c"],
			Cols:    cols,
			Rows:    rows,
			Options: map[string]string{},
			Created: time.Now(),
		}
		if len(rest) > 0 {
			s.Command = rest[0]
			if r.finish {
				return "", nil
			}
		}
		r.sessions[name] = s
		return "", nil
	case "has-session":
		if _, ok := r.lookupSession(flags["-t"]); !ok {
			return "", failed("can't find session: %s", flags["-t"])
		}
		return "", nil
	case "kill-session":
		s, ok := r.lookupSession(flags["-t"])
		if !ok {
			return "", failed("can't find session: %s", flags["-t"])
		}
		delete(r.sessions, s.Name)
		return "", nil
	case "set-option":
		s, ok := r.lookupWindow(flags["-t"])
		if !ok {
			return "", failed("no such session: %s", flags["-t"])
		}
		if len(rest) < 2 {
			return "", failed("invalid option: %v", rest)
		}
		s.Options[rest[0]] = rest[1]
		return "", nil
	case "resize-window":
		s, ok := r.lookupWindow(flags["-t"])
		if !ok {
			return "", failed("can't find window: %s", flags["-t"])
		}
		s.Cols, _ = strconv.Atoi(flags["-x"])
		s.Rows, _ = strconv.Atoi(flags["-y"])
		return "", nil
	case "list-sessions":
		if len(r.sessions) == 0 {
			return "", failed("no server running on /tmp/tmux-0/default")
		}
		var lines []string
		for _, s := range r.sessions {
			lines = append(lines, expandFormat(flags["-F"], s))
		}
		sort.Strings(lines)
		return strings.Join(lines, "\n"), nil
	}
	return "", failed("unknown command: %s", args[0])
}

// lookupSession resolves a session target: "=name" or "name".
func (r *Runner) lookupSession(target string) (*Session, bool) {
	s, ok := r.sessions[strings.TrimPrefix(target, "=")]
	return s, ok
}

// lookupWindow resolves a window or pane target. An exact session match
// needs the trailing colon; tmux rejects a bare "=name" here.
func (r *Runner) lookupWindow(target string) (*Session, bool) {
	if strings.HasPrefix(target, "=") && !strings.Contains(target, ":") {
		return nil, false
	}
	session, _, _ := strings.Cut(strings.TrimPrefix(target, "="), ":")
	s, ok := r.sessions[session]
	return s, ok
}

// expandFormat renders the session variables of a -F template, escaping
// control characters the way tmux does.
func expandFormat(format string, s *Session) string {
	if format == "" {
		format = "#{session_name}"
	}
	out := strings.NewReplacer(
		"#{session_name}", s.Name,
		"#{session_path}", s.Dir,
		"#{session_created}", strconv.FormatInt(s.Created.Unix(), 10),
	).Replace(format)
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return '_'
		}
		return r
	}, out)
}

func parseFlags(args []string) (map[string]string, []string) {
	flags := make(map[string]string)
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-d":
			flags["-d"] = ""
		case "-s", "-c", "-x", "-y", "-t", "-F":
			if i+1 < len(args) {
				flags[args[i]] = args[i+1]
				i++
			}
		default:
			rest = append(rest, args[i])
		}
	}
	return flags, rest
}

func failed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", tmux.ErrCommandFailed, fmt.Sprintf(format, args...))
}
