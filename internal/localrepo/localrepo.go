// Package localrepo reads model repositories from local git clones, as
// produced by `GIT_LFS_SKIP_SMUDGE=1 git clone https://huggingface.co/<owner>/<model>`.
package localrepo

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/everstacklabs/hfest/internal/estimate"
)

// ErrNotCloned means no git repository exists at the expected path.
var ErrNotCloned = errors.New("model repository not cloned locally")

// lfsPointerMax bounds blob sizes worth inspecting for an LFS pointer.
const lfsPointerMax = 1024

const lfsSpecPrefix = "version https://git-lfs.github.com/spec/"

// Source is an estimate.Source over clones laid out as <root>/<owner>/<model>.
type Source struct {
	root  string
	trees map[string]*object.Tree
}

var _ estimate.Source = (*Source)(nil)

// New returns a Source rooted at root.
func New(root string) *Source {
	return &Source{root: root, trees: make(map[string]*object.Tree)}
}

// Path returns the clone directory for repoID.
func (s *Source) Path(repoID string) string {
	return filepath.Join(s.root, filepath.FromSlash(repoID))
}

func (s *Source) tree(repoID string) (*object.Tree, error) {
	if t, ok := s.trees[repoID]; ok {
		return t, nil
	}
	if err := estimate.ValidateRepoID(repoID); err != nil {
		return nil, err
	}

	dir := s.Path(repoID)
	repo, err := git.PlainOpen(dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotCloned, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("opening repo: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}
	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("reading HEAD commit: %w", err)
	}
	t, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading HEAD tree: %w", err)
	}

	slog.Debug("opened local clone", "repo", repoID, "path", dir, "head", head.Hash().String())
	s.trees[repoID] = t
	return t, nil
}

// Metadata lists HEAD's files. Used storage is the sum of file sizes with
// LFS pointers resolved; the parameter count is not recorded in a clone.
func (s *Source) Metadata(ctx context.Context, repoID string) (*estimate.Metadata, error) {
	t, err := s.tree(repoID)
	if err != nil {
		return nil, err
	}

	meta := &estimate.Metadata{}
	err = t.Files().ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		meta.Files = append(meta.Files, f.Name)
		size, err := fileSize(f)
		if err != nil {
			return err
		}
		meta.UsedStorage += float64(size)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tree: %w", err)
	}
	return meta, nil
}

// FileSize returns the size of path at HEAD, resolving LFS pointers.
func (s *Source) FileSize(_ context.Context, repoID, path string) (estimate.FileSize, error) {
	t, err := s.tree(repoID)
	if err != nil {
		return estimate.UnknownSize, err
	}
	f, err := t.File(path)
	if err != nil {
		return estimate.UnknownSize, fmt.Errorf("%s: %w", path, err)
	}
	size, err := fileSize(f)
	if err != nil || size == 0 {
		return estimate.UnknownSize, err
	}
	return estimate.KnownSize(size), nil
}

// ReadFile returns the content of name at HEAD.
func (s *Source) ReadFile(_ context.Context, repoID, name string) ([]byte, error) {
	t, err := s.tree(repoID)
	if err != nil {
		return nil, err
	}
	f, err := t.File(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	content, err := f.Contents()
	if err != nil {
		return nil, err
	}
	if _, ok := ParsePointer([]byte(content)); ok {
		return nil, fmt.Errorf("%s is an LFS pointer; fetch it with git lfs pull", name)
	}
	return []byte(content), nil
}

func fileSize(f *object.File) (uint64, error) {
	if f.Size > lfsPointerMax {
		return uint64(f.Size), nil
	}
	content, err := f.Contents()
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", f.Name, err)
	}
	if size, ok := ParsePointer([]byte(content)); ok {
		return size, nil
	}
	return uint64(f.Size), nil
}

// ParsePointer returns the object size declared by a git-lfs pointer file.
func ParsePointer(data []byte) (uint64, bool) {
	if !bytes.HasPrefix(data, []byte(lfsSpecPrefix)) {
		return 0, false
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		v, ok := strings.CutPrefix(sc.Text(), "size ")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
