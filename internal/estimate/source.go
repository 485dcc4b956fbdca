package estimate

import "context"

// Metadata is what a source reports about a model repository.
type Metadata struct {
	UsedStorage float64  `json:"used_storage_bytes" yaml:"used_storage_bytes"`
	ParamCount  uint64   `json:"param_count" yaml:"param_count"`
	Files       []string `json:"files" yaml:"files"`
}

// FileSize is the size of a single repository file, which may be unknown.
type FileSize struct {
	Bytes uint64
	Known bool
}

// KnownSize returns a known FileSize of n bytes.
func KnownSize(n uint64) FileSize { return FileSize{Bytes: n, Known: true} }

// UnknownSize marks a file whose size could not be determined.
var UnknownSize = FileSize{}

// Source provides repository metadata and file access. The hub client and
// local git clones both implement it.
type Source interface {
	// Metadata fetches used storage, declared parameter count, and the file listing.
	Metadata(ctx context.Context, repoID string) (*Metadata, error)
	// FileSize returns the byte size of one file in the repository.
	FileSize(ctx context.Context, repoID, path string) (FileSize, error)
	// ReadFile returns the content of a small file such as config.json.
	ReadFile(ctx context.Context, repoID, name string) ([]byte, error)
}
