package cmd

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/naka-gawa/gh-metrics/internal/config"
	"github.com/naka-gawa/gh-metrics/internal/domain"
	"github.com/naka-gawa/gh-metrics/internal/replay"
)

var errNoToken = errors.New("no GitHub token: set GITHUB_TOKEN or run `git config --global github.oauth-token <token>`")

// gitConfigToken is swapped out in tests.
var gitConfigToken = func(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "config", "--get", "github.oauth-token").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// resolveToken reads GITHUB_TOKEN, falling back to the github.oauth-token git setting.
func resolveToken(ctx context.Context) (string, error) {
	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		return token, nil
	}
	token, err := gitConfigToken(ctx)
	if err != nil || token == "" {
		return "", errNoToken
	}
	return token, nil
}

// openStore opens the replay store of dataDir for the configured backend.
func openStore(dataDir string, cfg config.CacheConfig) (replay.Store, error) {
	if cfg.Backend == "sqlite" {
		return replay.OpenSQLiteStore(filepath.Join(dataDir, "graphql.db"))
	}
	return replay.NewFileStore(filepath.Join(dataDir, "graphql"))
}

// parseMode maps the --replay and --resume flags to a cache mode.
func parseMode(replayFlag, resumeFlag bool) domain.Mode {
	switch {
	case replayFlag:
		return domain.ModeReplay
	case resumeFlag:
		return domain.ModeResume
	default:
		return domain.ModeLive
	}
}
