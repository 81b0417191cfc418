// Package prompt asks the operator whether to keep waiting for an
// unreachable destination.
package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"

	"github.com/arumata/genback/internal/usecase"
)

const retryAnswer = "retry"

// Adapter implements usecase.OperatorPort over a line-oriented terminal.
// Input is read by a single goroutine started on the first prompt, so a
// canceled Decide never leaves a second reader behind.
type Adapter struct {
	logger      *slog.Logger
	in          *bufio.Reader
	out         io.Writer
	interactive bool
	mu          sync.Mutex

	readOnce sync.Once
	lines    chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// New creates a prompt reading from in and writing to out. When interactive
// is false every decision is DecisionAbort and nothing is printed.
func New(logger *slog.Logger, in io.Reader, out io.Writer, interactive bool) *Adapter {
	if logger == nil {
		panic("prompt adapter requires logger")
	}
	return &Adapter{
		logger:      logger,
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
		lines:       make(chan lineResult),
	}
}

// NewStdio creates a prompt on stdin/stderr. It is interactive only when
// stdin is a terminal and allowInteractive is set.
func NewStdio(logger *slog.Logger, allowInteractive bool) *Adapter {
	interactive := allowInteractive && term.IsTerminal(int(os.Stdin.Fd()))
	return New(logger, os.Stdin, os.Stderr, interactive)
}

// Interactive reports whether the adapter asks a human.
func (a *Adapter) Interactive() bool {
	return a.interactive
}

// Decide prints message and waits for one line of input.
func (a *Adapter) Decide(ctx context.Context, message string) (usecase.Decision, error) {
	if !a.interactive {
		a.logger.Info("Non-interactive mode, aborting", "reason", message)
		return usecase.DecisionAbort, nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	fmt.Fprintf(a.out, "\n%s\nEnter '%s' to try again, or anything else to abort: ", message, retryAnswer)
	a.readOnce.Do(func() { go a.readLines() })

	select {
	case <-ctx.Done():
		fmt.Fprintln(a.out)
		return usecase.DecisionAbort, ctx.Err()
	case res, ok := <-a.lines:
		if !ok {
			return usecase.DecisionAbort, nil
		}
		if res.err != nil && res.line == "" {
			if res.err != io.EOF {
				a.logger.Warn("Cannot read operator answer", "error", res.err)
			}
			return usecase.DecisionAbort, nil
		}
		return parseAnswer(res.line), nil
	}
}

// readLines feeds a.lines until the input fails, then closes it.
func (a *Adapter) readLines() {
	defer close(a.lines)
	for {
		line, err := a.in.ReadString('\n')
		a.lines <- lineResult{line: line, err: err}
		if err != nil {
			return
		}
	}
}

func parseAnswer(line string) usecase.Decision {
	if strings.EqualFold(strings.TrimSpace(line), retryAnswer) {
		return usecase.DecisionRetry
	}
	return usecase.DecisionAbort
}
