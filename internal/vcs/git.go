// Package vcs reads commit ancestry and author metadata from the local
// repository with go-git.
package vcs

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// defaultMaxDepth bounds how far back BranchName walks from each branch tip.
const defaultMaxDepth = 1000

// ErrNoBranch is returned when no branch reaches the commit.
var ErrNoBranch = errors.New("no branch contains commit")

// Author is the metadata of a commit.
type Author struct {
	Name      string
	Email     string
	Date      time.Time
	ShortHash string
	Subject   string
}

// Repo is a local git repository.
type Repo struct {
	repo     *git.Repository
	maxDepth int
}

// Open opens the repository containing path, searching parent directories.
func Open(path string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening repository at %s: %w", path, err)
	}
	return New(r), nil
}

// New wraps an already opened repository.
func New(r *git.Repository) *Repo {
	return &Repo{repo: r, maxDepth: defaultMaxDepth}
}

// Parents returns the parent SHAs of the commit named by rev.
func (r *Repo) Parents(rev string) ([]string, error) {
	c, err := r.commit(rev)
	if err != nil {
		return nil, err
	}
	parents := make([]string, 0, len(c.ParentHashes))
	for _, h := range c.ParentHashes {
		parents = append(parents, h.String())
	}
	return parents, nil
}

// BranchName returns the name of the local or remote branch whose tip is
// closest to the commit, in the manner of git name-rev. The "origin/"
// prefix of remote branches is dropped; ties go to the lexically smaller
// name.
func (r *Repo) BranchName(rev string) (string, error) {
	target, err := r.resolve(rev)
	if err != nil {
		return "", err
	}

	refs, err := r.repo.References()
	if err != nil {
		return "", fmt.Errorf("listing references: %w", err)
	}
	defer refs.Close()

	type candidate struct {
		name     string
		distance int
	}
	var found []candidate
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if ref.Type() != plumbing.HashReference {
			return nil
		}
		name := ref.Name()
		if !name.IsBranch() && !name.IsRemote() {
			return nil
		}
		if d, ok := r.distance(ref.Hash(), target); ok {
			found = append(found, candidate{name: shortBranch(name), distance: d})
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking references: %w", err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w %s", ErrNoBranch, target)
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].distance != found[j].distance {
			return found[i].distance < found[j].distance
		}
		return found[i].name < found[j].name
	})
	return found[0].name, nil
}

// Author returns the author metadata of the commit named by rev.
func (r *Repo) Author(rev string) (Author, error) {
	c, err := r.commit(rev)
	if err != nil {
		return Author{}, err
	}
	hash := c.Hash.String()
	subject, _, _ := strings.Cut(strings.TrimSpace(c.Message), "\n")
	return Author{
		Name:      c.Author.Name,
		Email:     c.Author.Email,
		Date:      c.Author.When,
		ShortHash: hash[:7],
		Subject:   subject,
	}, nil
}

// distance counts the commits walked from tip before reaching target. Walks
// that hit missing objects (shallow clones) report not found.
func (r *Repo) distance(tip, target plumbing.Hash) (int, bool) {
	if tip == target {
		return 0, true
	}
	iter, err := r.repo.Log(&git.LogOptions{From: tip})
	if err != nil {
		return 0, false
	}
	defer iter.Close()

	steps, found := 0, false
	_ = iter.ForEach(func(c *object.Commit) error {
		if c.Hash == target {
			found = true
			return storer.ErrStop
		}
		steps++
		if steps > r.maxDepth {
			return storer.ErrStop
		}
		return nil
	})
	return steps, found
}

func (r *Repo) resolve(rev string) (plumbing.Hash, error) {
	if rev == "" {
		return plumbing.ZeroHash, errors.New("empty revision")
	}
	h, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("resolving %s: %w", rev, err)
	}
	return *h, nil
}

func (r *Repo) commit(rev string) (*object.Commit, error) {
	h, err := r.resolve(rev)
	if err != nil {
		return nil, err
	}
	c, err := r.repo.CommitObject(h)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", h, err)
	}
	return c, nil
}

func shortBranch(name plumbing.ReferenceName) string {
	return strings.TrimPrefix(name.Short(), "origin/")
}
