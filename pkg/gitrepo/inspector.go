package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/Sai-Yarlagadda/grading-14763/pkg/config"
)

var (
	// ErrRepositoryNotFound means the host reported no repository at the URL.
	ErrRepositoryNotFound = errors.New("repository not found")
	// ErrAuthenticationRequired means the host demanded credentials for the URL.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrEmptyTree means HEAD has no tracked entries to date.
	ErrEmptyTree = errors.New("repository has no tracked files")
)

// Cloner clones url into dir. PlainCloneContext is the production implementation.
type Cloner func(ctx context.Context, dir string, opts *git.CloneOptions) (*git.Repository, error)

func plainClone(ctx context.Context, dir string, opts *git.CloneOptions) (*git.Repository, error) {
	return git.PlainCloneContext(ctx, dir, true, opts)
}

// Inspector answers "when was this repository last changed" by cloning it into a throwaway workspace.
type Inspector struct {
	auth     transport.AuthMethod
	timeout  time.Duration
	tempRoot string
	clone    Cloner
	logger   *zap.Logger
}

// InspectorOption customises an Inspector.
type InspectorOption func(*Inspector)

// WithCloner swaps the clone implementation.
func WithCloner(c Cloner) InspectorOption {
	return func(i *Inspector) { i.clone = c }
}

// WithTempRoot places workspaces under root instead of os.TempDir.
func WithTempRoot(root string) InspectorOption {
	return func(i *Inspector) { i.tempRoot = root }
}

// NewInspector builds an Inspector from git settings.
func NewInspector(cfg config.GitConfig, logger *zap.Logger, opts ...InspectorOption) *Inspector {
	if logger == nil {
		logger = zap.NewNop()
	}
	i := &Inspector{
		timeout: cfg.CloneTimeout,
		clone:   plainClone,
		logger:  logger,
	}
	if cfg.Token != "" {
		username := cfg.Username
		if username == "" {
			username = "x-access-token"
		}
		i.auth = &githttp.BasicAuth{Username: username, Password: cfg.Token}
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// LastCommitTime returns the newest commit instant touching any top-level entry of HEAD.
func (i *Inspector) LastCommitTime(ctx context.Context, url string) (time.Time, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	ws, err := Acquire(i.tempRoot, "submission-")
	if err != nil {
		return time.Time{}, err
	}
	defer func() {
		if err := ws.Release(); err != nil {
			i.logger.Sugar().Warnw("failed to release clone workspace", "dir", ws.Dir, "error", err)
		}
	}()

	repo, err := i.clone(ctx, ws.Dir, &git.CloneOptions{URL: url, Auth: i.auth, Tags: git.NoTags})
	if err != nil {
		return time.Time{}, classify(err)
	}

	when, err := LatestChange(repo)
	if err != nil {
		return time.Time{}, err
	}
	i.logger.Sugar().Debugw("resolved last commit", "url", url, "committed_at", when)
	return when, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return fmt.Errorf("%w: %v", ErrRepositoryNotFound, err)
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return fmt.Errorf("%w: %v", ErrAuthenticationRequired, err)
	}
	return fmt.Errorf("clone repository: %w", err)
}

// LatestChange walks history newest first and returns the committer time of the first
// commit that touched one of HEAD's top-level entries.
func LatestChange(repo *git.Repository) (time.Time, error) {
	head, err := repo.Head()
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return time.Time{}, fmt.Errorf("load HEAD commit: %w", err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return time.Time{}, fmt.Errorf("load HEAD tree: %w", err)
	}
	if len(tree.Entries) == 0 {
		return time.Time{}, ErrEmptyTree
	}

	entries := make(map[string]struct{}, len(tree.Entries))
	for _, e := range tree.Entries {
		entries[e.Name] = struct{}{}
	}

	iter, err := repo.Log(&git.LogOptions{
		From:  head.Hash(),
		Order: git.LogOrderCommitterTime,
		PathFilter: func(path string) bool {
			top, _, _ := strings.Cut(path, "/")
			_, ok := entries[top]
			return ok
		},
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("walk history: %w", err)
	}
	defer iter.Close()

	var latest time.Time
	err = iter.ForEach(func(c *object.Commit) error {
		latest = c.Committer.When
		return storer.ErrStop
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("walk history: %w", err)
	}
	if latest.IsZero() {
		return time.Time{}, ErrEmptyTree
	}
	return latest, nil
}
