package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/repodesk/repodesk/internal/app"
)

// CLI is the command-line surface. Configuration comes from REPODESK_* environment
// variables; the global flags only override the log and output settings.
type CLI struct {
	Version   kong.VersionFlag `help:"Show version information"`
	LogLevel  string           `help:"Log level (debug, info, warn, error); overrides REPODESK_LOG_LEVEL"`
	LogFormat string           `help:"Log format (text, json); overrides REPODESK_LOG_FORMAT"`
	Output    string           `help:"Output format" enum:"text,json" default:"text" short:"o"`

	Repos        ReposCmd        `cmd:"" help:"List, create and delete repositories"`
	Issues       IssuesCmd       `cmd:"" help:"List and open issues"`
	Link         LinkCmd         `cmd:"" help:"Link a local folder to a repository and push it"`
	Clone        CloneCmd        `cmd:"" help:"Clone a repository into a folder"`
	Pull         PullCmd         `cmd:"" help:"Pull the remote changes into a working copy"`
	ImportFolder ImportFolderCmd `cmd:"import-folder" help:"Copy a folder into a repository and push it"`
	ImportFile   ImportFileCmd   `cmd:"import-file" help:"Upload a text file to the root of a repository"`
	Status       StatusCmd       `cmd:"" help:"Show the git state of a local folder"`
	Identity     IdentityCmd     `cmd:"" help:"Show or set the global git commit identity"`
	GitVersion   VersionCmd      `cmd:"version" help:"Show the repodesk and git versions"`
}

// session opens the application and the output renderer for one command.
// The returned close function must be called once the command is done.
func (c *CLI) session() (*app.App, *app.Renderer, func() error, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	if c.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(c.LogLevel)
	}
	if c.LogFormat != "" {
		cfg.LogFormat = strings.ToLower(c.LogFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	renderer, err := app.NewRenderer(os.Stdout, c.Output)
	if err != nil {
		return nil, nil, nil, err
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return a, renderer, a.Close, nil
}

// finish joins the command error with the error of closing the application.
func finish(err error, closeFn func() error) error {
	if closeErr := closeFn(); closeErr != nil {
		return errors.Join(err, closeErr)
	}
	return err
}

// confirm asks a yes/no question on stdin. Anything but y or yes is a no.
func confirm(question string) bool {
	fmt.Fprintf(os.Stderr, "%s (y/N): ", question)
	var response string
	_, _ = fmt.Fscanln(os.Stdin, &response)
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
