package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"overlay/internal/protocol"
)

type sessionOp int

const (
	opShow sessionOp = iota
	opFocus
	opHide
	opActivate
	opShutdown
	opStatus
	opQuit
)

type sessionRequest struct {
	op         sessionOp
	preedit    string
	candidates []string
	focus      int
	force      bool
}

var errEmptyLine = errors.New("empty line")

// parseSessionLine turns one stdin line into a request. Fields are split on
// whitespace; focus is 1-based.
func parseSessionLine(line string) (sessionRequest, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return sessionRequest{}, errEmptyLine
	}
	switch strings.ToLower(fields[0]) {
	case "show":
		if len(fields) < 2 {
			return sessionRequest{}, errors.New("show requires a preedit")
		}
		return sessionRequest{op: opShow, preedit: fields[1], candidates: fields[2:]}, nil
	case "focus":
		if len(fields) != 2 {
			return sessionRequest{}, errors.New("focus requires a candidate number")
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 1 {
			return sessionRequest{}, fmt.Errorf("invalid candidate number %q", fields[1])
		}
		return sessionRequest{op: opFocus, focus: n}, nil
	case "hide":
		return sessionRequest{op: opHide}, nil
	case "activate":
		return sessionRequest{op: opActivate}, nil
	case "shutdown":
		req := sessionRequest{op: opShutdown}
		for _, arg := range fields[1:] {
			if arg != "--force" {
				return sessionRequest{}, fmt.Errorf("unknown shutdown flag %q", arg)
			}
			req.force = true
		}
		return req, nil
	case "status":
		return sessionRequest{op: opStatus}, nil
	case "quit", "exit":
		return sessionRequest{op: opQuit}, nil
	default:
		return sessionRequest{}, fmt.Errorf("unknown command %q", fields[0])
	}
}

// session applies requests to a renderer runtime and remembers the last
// output so focus changes can be resent.
type session struct {
	rt   *rendererRuntime
	out  io.Writer
	last *protocol.Output
}

func (s *session) apply(req sessionRequest) (quit bool) {
	switch req.op {
	case opShow:
		output := protocol.Output{Preedit: req.preedit}
		for _, value := range req.candidates {
			output.Candidates = append(output.Candidates, protocol.Candidate{Value: value})
		}
		s.last = &output
		s.reply(s.rt.client.ExecCommand(protocol.NewUpdate(output)))
	case opFocus:
		if s.last == nil {
			fmt.Fprintln(s.out, "error: nothing shown yet")
			return false
		}
		if req.focus > len(s.last.Candidates) {
			fmt.Fprintf(s.out, "error: only %d candidates\n", len(s.last.Candidates))
			return false
		}
		s.last.Focused = req.focus - 1
		s.reply(s.rt.client.ExecCommand(protocol.NewUpdate(*s.last)))
	case opHide:
		s.reply(s.rt.client.ExecCommand(protocol.NewHide()))
	case opActivate:
		s.reply(s.rt.client.Activate())
	case opShutdown:
		s.reply(s.rt.client.Shutdown(req.force))
	case opStatus:
		l := s.rt.launcher
		fmt.Fprintf(s.out, "status=%s available=%s error_times=%d mismatches=%d\n",
			l.Status(), yesNo(l.IsAvailable()), l.ErrorTimes(), s.rt.client.VersionMismatches())
	case opQuit:
		return true
	}
	return false
}

func (s *session) reply(handled bool) {
	if handled {
		fmt.Fprintln(s.out, "ok")
		return
	}
	fmt.Fprintln(s.out, "retry")
}

func newSessionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "session",
		Short: "Read renderer commands from stdin",
		Long: `Keeps a renderer client alive and reads one command per line:

  show <preedit> [candidate...]   show the candidate window
  focus <n>                       focus candidate n of the last show
  hide                            hide the window
  activate                        start the renderer if needed
  shutdown [--force]              stop the renderer
  status                          print launcher state
  quit                            hide the window and exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			rt, err := newRendererRuntime(cmd.Context(), cfg, logger, true)
			if err != nil {
				return err
			}
			defer rt.Close()

			s := &session{rt: rt, out: cmd.OutOrStdout()}
			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				req, err := parseSessionLine(scanner.Text())
				if errors.Is(err, errEmptyLine) {
					continue
				}
				if err != nil {
					fmt.Fprintf(s.out, "error: %v\n", err)
					continue
				}
				if s.apply(req) {
					return nil
				}
			}
			return scanner.Err()
		},
	}
}
