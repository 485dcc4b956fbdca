// Package hub reads model repositories from the Hugging Face Hub API.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/everstacklabs/hfest/internal/estimate"
	"github.com/everstacklabs/hfest/internal/httpclient"
)

const (
	// DefaultEndpoint is the public Hub.
	DefaultEndpoint = "https://huggingface.co"
	// DefaultRevision is the branch every request resolves against.
	DefaultRevision = "main"
)

// Client is an estimate.Source backed by the Hub HTTP API.
type Client struct {
	endpoint string
	token    string
	revision string
	client   *httpclient.Client
	// TempDir is where downloaded files are staged; os.TempDir() when empty.
	TempDir string
}

var _ estimate.Source = (*Client)(nil)

// New returns a Hub client. The bearer token itself is attached by the
// httpclient transport; token here only gates requests.
func New(endpoint, token string, client *httpclient.Client) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		token:    token,
		revision: DefaultRevision,
		client:   client,
	}
}

// Hub /api/models/{repo} response.
type modelInfo struct {
	UsedStorage storageSize `json:"usedStorage"`
	Safetensors *struct {
		Total uint64 `json:"total"`
	} `json:"safetensors"`
	Siblings []struct {
		RFilename string `json:"rfilename"`
	} `json:"siblings"`
}

// storageSize accepts usedStorage as either a JSON number or a numeric string.
type storageSize float64

func (s *storageSize) UnmarshalJSON(b []byte) error {
	raw := strings.Trim(string(b), `"`)
	if raw == "" || raw == "null" {
		*s = 0
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("usedStorage: %w", err)
	}
	*s = storageSize(f)
	return nil
}

func (c *Client) guard(repoID string) error {
	if err := estimate.ValidateRepoID(repoID); err != nil {
		return err
	}
	if c.token == "" {
		return ErrMissingCredential
	}
	return nil
}

// Metadata fetches used storage, parameter count, and the file listing.
func (c *Client) Metadata(ctx context.Context, repoID string) (*estimate.Metadata, error) {
	if err := c.guard(repoID); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Add("fields", "usedStorage")
	q.Add("fields", "safetensors")
	q.Add("fields", "siblings")
	u := fmt.Sprintf("%s/api/models/%s?%s", c.endpoint, repoID, q.Encode())

	resp, err := c.client.Get(ctx, u, nil)
	if err != nil {
		return nil, mapError(repoID, err)
	}

	var info modelInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: "unparseable model info", Err: err}
	}

	meta := &estimate.Metadata{UsedStorage: float64(info.UsedStorage)}
	if info.Safetensors != nil {
		meta.ParamCount = info.Safetensors.Total
	}
	for _, s := range info.Siblings {
		meta.Files = append(meta.Files, s.RFilename)
	}

	slog.Debug("model info fetched", "repo", repoID, "files", len(meta.Files), "params", meta.ParamCount, "cached", resp.FromCache)
	return meta, nil
}

// Hub paths-info response entry.
type pathInfo struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size uint64 `json:"size"`
	LFS  *struct {
		Size uint64 `json:"size"`
	} `json:"lfs"`
}

// FileSize queries the paths-info endpoint for one file. An LFS size is
// preferred over the pointer size; a missing entry or zero size is unknown.
func (c *Client) FileSize(ctx context.Context, repoID, path string) (estimate.FileSize, error) {
	if err := c.guard(repoID); err != nil {
		return estimate.UnknownSize, err
	}

	u := fmt.Sprintf("%s/api/models/%s/paths-info/%s", c.endpoint, repoID, url.PathEscape(c.revision))
	resp, err := c.client.PostForm(ctx, u, url.Values{"paths": {path}}, nil)
	if err != nil {
		return estimate.UnknownSize, mapError(repoID, err)
	}

	var infos []pathInfo
	if err := json.Unmarshal(resp.Body, &infos); err != nil {
		return estimate.UnknownSize, fmt.Errorf("parsing paths-info for %s: %w", path, err)
	}
	if len(infos) == 0 {
		return estimate.UnknownSize, nil
	}

	size := infos[0].Size
	if infos[0].LFS != nil && infos[0].LFS.Size > 0 {
		size = infos[0].LFS.Size
	}
	if size == 0 {
		return estimate.UnknownSize, nil
	}
	return estimate.KnownSize(size), nil
}

// ReadFile downloads name from the repository into
// <TempDir>/hfest/<owner>/<model>/<name> and returns its content.
func (c *Client) ReadFile(ctx context.Context, repoID, name string) ([]byte, error) {
	if err := c.guard(repoID); err != nil {
		return nil, err
	}

	base := c.TempDir
	if base == "" {
		base = os.TempDir()
	}
	root := filepath.Join(base, "hfest")
	dest := filepath.Join(root, filepath.FromSlash(repoID), filepath.FromSlash(name))
	if rel, err := filepath.Rel(root, dest); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("refusing to stage %s outside %s", name, root)
	}

	u := fmt.Sprintf("%s/%s/resolve/%s/%s", c.endpoint, repoID, url.PathEscape(c.revision), name)
	resp, err := c.client.Get(ctx, u, nil)
	if err != nil {
		return nil, mapError(repoID, err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("creating download dir: %w", err)
	}
	if err := os.WriteFile(dest, resp.Body, 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", dest, err)
	}

	slog.Debug("downloaded repository file", "repo", repoID, "file", name, "path", dest)
	return os.ReadFile(dest)
}
