package publish

import (
	"context"
	"log/slog"

	"github.com/LeCoonEtSaBande/foil-report/internal/command"
	"github.com/LeCoonEtSaBande/foil-report/internal/workdir"
)

// Publisher deploys the working directory.
type Publisher interface {
	// Publish deploys the pointer and the report it references.
	Publish(ctx context.Context, dir *workdir.Dir) error

	// Name returns the publisher kind for logs and summaries.
	Name() string
}

// CommandPublisher runs an external deploy tool, for example
// "netlify deploy --dir {dir} --prod". Credentials are read by the tool from
// the environment, which is passed through unchanged.
type CommandPublisher struct {
	args   []string
	env    []string
	logger *slog.Logger
}

// NewCommandPublisher creates a publisher running args. env is appended to
// the process environment.
func NewCommandPublisher(args, env []string, logger *slog.Logger) *CommandPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandPublisher{args: args, env: env, logger: logger}
}

// Publish implements Publisher.
func (p *CommandPublisher) Publish(ctx context.Context, dir *workdir.Dir) error {
	return command.Run(ctx, p.logger, command.Spec{Args: p.args, Dir: dir.Path(), Env: p.env})
}

// Name implements Publisher.
func (p *CommandPublisher) Name() string { return "command" }
