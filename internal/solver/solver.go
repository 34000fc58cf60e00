// Package solver drives an SMT solver as an interactive subprocess. One
// Session corresponds to one solver process; assertions are scoped with
// push/pop so a single process can serve a whole batch of queries.
package solver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MrRacoon/pact/internal/checker"
	"github.com/MrRacoon/pact/internal/term"
)

// Result is a check-sat verdict.
type Result int

const (
	Sat Result = iota
	Unsat
	Unknown
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Options configure a session. The zero value runs "z3" from PATH with no
// query timeout.
type Options struct {
	Binary  string
	Timeout time.Duration
	Logger  logrus.FieldLogger
}

// Session is one live solver process speaking SMT-LIB 2 on its standard
// streams. Sessions are not safe for concurrent use.
type Session struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
	log logrus.FieldLogger
}

// Open starts the solver process and puts it in synchronized mode: every
// command is acknowledged before the next is sent, so a malformed assertion
// surfaces at its own call site rather than corrupting a later reply.
func Open(ctx context.Context, opts Options) (*Session, error) {
	binary := opts.Binary
	if binary == "" {
		binary = "z3"
	}
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.WarnLevel)
		log = l
	}

	cmd := exec.CommandContext(ctx, binary, "-in")
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("solver stdin: %w", err)
	}
	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("solver stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	s := &Session{cmd: cmd, in: in, out: bufio.NewReader(outPipe), log: log}
	if err := s.command("(set-option :print-success true)"); err != nil {
		s.kill()
		return nil, err
	}
	if opts.Timeout > 0 {
		ms := opts.Timeout.Milliseconds()
		if err := s.command(fmt.Sprintf("(set-option :timeout %d)", ms)); err != nil {
			s.kill()
			return nil, err
		}
	}
	if err := s.command("(set-option :produce-models true)"); err != nil {
		s.kill()
		return nil, err
	}
	return s, nil
}

// Declare introduces a free constant of the sort matching ty.
func (s *Session) Declare(name string, ty checker.Type) error {
	return s.command(fmt.Sprintf("(declare-const %s %s)", name, term.Sort(ty)))
}

// Assert adds a boolean term to the current assertion scope.
func (s *Session) Assert(t term.Term) error {
	return s.command(fmt.Sprintf("(assert %s)", term.SMT(t)))
}

// Push opens a new assertion scope.
func (s *Session) Push() error {
	return s.command("(push 1)")
}

// Pop discards the innermost assertion scope.
func (s *Session) Pop() error {
	return s.command("(pop 1)")
}

// InScope runs fn inside a fresh assertion scope, popping it even when fn
// fails.
func (s *Session) InScope(fn func() error) error {
	if err := s.Push(); err != nil {
		return err
	}
	ferr := fn()
	perr := s.Pop()
	if ferr != nil {
		return ferr
	}
	return perr
}

// CheckSat queries satisfiability of the current assertions. For Unknown
// verdicts the solver's stated reason is returned alongside.
func (s *Session) CheckSat() (Result, string, error) {
	if err := s.send("(check-sat)"); err != nil {
		return Unknown, "", err
	}
	line, err := s.readLine()
	if err != nil {
		return Unknown, "", err
	}
	s.log.WithField("verdict", line).Debug("check-sat")
	switch line {
	case "sat":
		return Sat, "", nil
	case "unsat":
		return Unsat, "", nil
	case "unknown":
		reason, err := s.reasonUnknown()
		if err != nil {
			return Unknown, "", err
		}
		return Unknown, reason, nil
	default:
		return Unknown, "", fmt.Errorf("unexpected solver reply %q", line)
	}
}

func (s *Session) reasonUnknown() (string, error) {
	if err := s.send("(get-info :reason-unknown)"); err != nil {
		return "", err
	}
	line, err := s.readBalanced()
	if err != nil {
		return "", err
	}
	// reply shape: (:reason-unknown "<text>") or (:reason-unknown canceled)
	line = strings.TrimPrefix(line, "(:reason-unknown")
	line = strings.TrimSuffix(line, ")")
	return strings.Trim(strings.TrimSpace(line), `"`), nil
}

// Value fetches the model value bound to a declared constant. Only
// meaningful after a Sat verdict.
func (s *Session) Value(name string) (string, error) {
	if err := s.send(fmt.Sprintf("(get-value (%s))", name)); err != nil {
		return "", err
	}
	reply, err := s.readBalanced()
	if err != nil {
		return "", err
	}
	// reply shape: ((name <value>))
	inner := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(reply, "(("), "))"))
	if rest, ok := strings.CutPrefix(inner, name); ok {
		return strings.TrimSpace(rest), nil
	}
	return inner, nil
}

// Close asks the solver to exit and reaps the process.
func (s *Session) Close() error {
	fmt.Fprintln(s.in, "(exit)")
	s.in.Close()
	return s.cmd.Wait()
}

func (s *Session) kill() {
	s.in.Close()
	s.cmd.Process.Kill()
	s.cmd.Wait()
}

// command sends one SMT-LIB command and consumes its acknowledgement.
func (s *Session) command(cmd string) error {
	if err := s.send(cmd); err != nil {
		return err
	}
	line, err := s.readLine()
	if err != nil {
		return err
	}
	if line != "success" {
		return fmt.Errorf("solver rejected %q: %s", cmd, line)
	}
	return nil
}

func (s *Session) send(cmd string) error {
	s.log.WithField("cmd", cmd).Trace("solver")
	if _, err := fmt.Fprintln(s.in, cmd); err != nil {
		return fmt.Errorf("write to solver: %w", err)
	}
	return nil
}

func (s *Session) readLine() (string, error) {
	line, err := s.out.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read from solver: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readBalanced accumulates lines until the parentheses balance, for the
// replies that may span lines.
func (s *Session) readBalanced() (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		line, err := s.readLine()
		if err != nil {
			return "", err
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(line)
		for _, r := range line {
			switch r {
			case '(':
				depth++
			case ')':
				depth--
			}
		}
		if depth <= 0 {
			return sb.String(), nil
		}
	}
}
