package terminal

import (
	"errors"
	"io"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const (
	streamLive int32 = iota
	streamExited
	streamSilenced
)

// stream pairs a transport with its exit notifier. Exactly one Exit event is
// published per stream; a silenced stream publishes nothing further.
type stream struct {
	sessionID  string
	transport  *Transport
	scrollback *Buffer
	state      atomic.Int32
	readerDone chan struct{}
}

func newStream(sessionID string, t *Transport, scrollback *Buffer) *stream {
	return &stream{
		sessionID:  sessionID,
		transport:  t,
		scrollback: scrollback,
		readerDone: make(chan struct{}),
	}
}

// claimExit reserves the right to publish the stream's Exit event.
func (s *stream) claimExit() bool {
	return s.state.CompareAndSwap(streamLive, streamExited)
}

func (s *stream) silence() {
	s.state.Store(streamSilenced)
}

func (s *stream) silenced() bool {
	return s.state.Load() == streamSilenced
}

// waitReader blocks until the reader loop has drained, or d elapses.
func (s *stream) waitReader(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.readerDone:
	case <-timer.C:
	}
}

func (m *Manager) startPump(st *stream, commandMode bool) {
	go m.readLoop(st, commandMode)
	if commandMode {
		go m.monitorLoop(st)
	}
}

// readLoop republishes master output in read order. For interactive
// sessions it also reports end of stream as a code-less exit.
func (m *Manager) readLoop(st *stream, commandMode bool) {
	defer close(st.readerDone)

	log := m.logger.With(zap.String("session_id", st.sessionID))
	log.Debug("reader loop started")

	buf := make([]byte, m.opts.ReadBuffer)
	total := 0
	for {
		n, err := st.transport.Read(buf)
		if n > 0 {
			total += n
			if !st.silenced() {
				data := make([]byte, n)
				copy(data, buf[:n])
				st.scrollback.Write(data)
				m.metrics.AddBytesOut(n)
				m.publish(Event{Kind: EventOutput, SessionID: st.sessionID, Data: data})
			}
		}
		if err != nil {
			if isEndOfStream(err) {
				log.Info("terminal end of stream", zap.Int("total_bytes", total))
			} else {
				log.Info("terminal read error", zap.Int("total_bytes", total), zap.Error(err))
			}
			break
		}
	}

	if !commandMode && st.claimExit() {
		m.publishExit(st.sessionID, nil)
	}
}

// monitorLoop waits for a command-mode child to exit, lets the reader drain
// for up to the grace period, then publishes the exit code.
func (m *Manager) monitorLoop(st *stream) {
	child := st.transport.Child()
	<-child.Done()

	st.waitReader(m.opts.ExitGrace)

	code := child.ExitCode()
	m.logger.Info("command session exited",
		zap.String("session_id", st.sessionID),
		zap.Intp("exit_code", code))

	if st.claimExit() {
		m.publishExit(st.sessionID, code)
	}
}

func (m *Manager) publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	m.sink.Publish(e)
}

func (m *Manager) publishExit(sessionID string, code *int) {
	m.metrics.RecordExit(code != nil)
	m.publish(Event{Kind: EventExit, SessionID: sessionID, ExitCode: code})
}

// isEndOfStream treats EIO as EOF: Linux reports a hung-up slave that way.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, syscall.EIO)
}
