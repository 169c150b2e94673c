// Package command runs the external programs a pipeline can be configured
// with: a fetcher, a renderer or a deploy tool.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/LeCoonEtSaBande/foil-report/internal/log"
)

// EnvWorkDir names the working directory for external programs.
const EnvWorkDir = "FOILREPORT_WORKDIR"

// PlaceholderDir is replaced by the working directory in command arguments.
const PlaceholderDir = "{dir}"

// maxOutputTail is how much of the output is kept in error messages.
const maxOutputTail = 2048

// ErrEmptyCommand is returned when no executable is given.
var ErrEmptyCommand = errors.New("empty command")

// Spec describes one invocation.
type Spec struct {
	// Args is the command line; Args[0] is the executable.
	Args []string

	// Dir is the working directory of the process and the {dir} value.
	Dir string

	// Env is appended to the current environment.
	Env []string
}

// Expand returns the arguments with {dir} replaced.
func (s Spec) Expand() []string {
	out := make([]string, len(s.Args))
	for i, a := range s.Args {
		out[i] = strings.ReplaceAll(a, PlaceholderDir, s.Dir)
	}
	return out
}

// Run executes the command and waits for it. Output is logged at debug
// level, and its tail is attached to the error when the command fails.
func Run(ctx context.Context, logger *slog.Logger, s Spec) error {
	if len(s.Args) == 0 || s.Args[0] == "" {
		return ErrEmptyCommand
	}
	if logger == nil {
		logger = slog.Default()
	}

	args := s.Expand()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...) //nolint:gosec // commands come from the operator's configuration
	cmd.Dir = s.Dir
	cmd.Env = append(os.Environ(), s.Env...)
	cmd.Env = append(cmd.Env, EnvWorkDir+"="+s.Dir)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Debug("running command", "command", log.SanitizeArgs(args), "env", log.SanitizeArgs(s.Env))
	err := cmd.Run()
	if out.Len() > 0 {
		logger.Debug("command output", "command", args[0], "output", out.String())
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w: %s", args[0], err, tail(out.String()))
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutputTail {
		s = "..." + s[len(s)-maxOutputTail:]
	}
	return s
}
