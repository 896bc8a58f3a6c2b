package git

import (
	"context"
	"fmt"
	"strings"
)

// Version returns the output of git --version, failing when git is not installed.
func (d *ShellDriver) Version(ctx context.Context) (string, error) {
	out, err := d.runGit(ctx, "--version")
	if err != nil {
		return "", fmt.Errorf("git --version: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// GlobalIdentity reads user.name and user.email from the global git config.
// Unset keys come back empty.
func (d *ShellDriver) GlobalIdentity(ctx context.Context) (Identity, error) {
	name, err := d.globalConfig(ctx, "user.name")
	if err != nil {
		return Identity{}, err
	}
	email, err := d.globalConfig(ctx, "user.email")
	if err != nil {
		return Identity{}, err
	}
	return Identity{Name: name, Email: email}, nil
}

// SetGlobalIdentity writes user.name and user.email to the global git config.
func (d *ShellDriver) SetGlobalIdentity(ctx context.Context, id Identity) error {
	if strings.TrimSpace(id.Name) == "" || strings.TrimSpace(id.Email) == "" {
		return fmt.Errorf("name and email are required")
	}
	if _, err := d.runGit(ctx, "config", "--global", "user.name", id.Name); err != nil {
		return fmt.Errorf("git config user.name: %w", err)
	}
	if _, err := d.runGit(ctx, "config", "--global", "user.email", id.Email); err != nil {
		return fmt.Errorf("git config user.email: %w", err)
	}
	return nil
}

func (d *ShellDriver) globalConfig(ctx context.Context, key string) (string, error) {
	out, err := d.runGit(ctx, "config", "--global", "--get", key)
	if err != nil {
		// exit status 1 means the key is unset
		if exitCode(err) == 1 {
			return "", nil
		}
		return "", fmt.Errorf("git config %s: %w", key, err)
	}
	return strings.TrimSpace(out), nil
}
