package scaffold

import (
	"context"
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/memory"
)

// GitCloner shallow-clones into memory and checks the worktree out into
// the destination directory, so no .git directory is left behind.
type GitCloner struct{}

func (GitCloner) Clone(ctx context.Context, repoURL, dest string) error {
	_, err := git.CloneContext(ctx, memory.NewStorage(), osfs.New(dest), &git.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		return fmt.Errorf("git clone %s: %w", repoURL, err)
	}
	return nil
}
