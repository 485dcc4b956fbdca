package hub

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/everstacklabs/hfest/internal/estimate"
	"github.com/everstacklabs/hfest/internal/httpclient"
)

func newTestClient(t *testing.T, token string, h http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		h(w, r)
	}))
	t.Cleanup(srv.Close)

	hc := httpclient.New(httpclient.WithBearerToken(token))
	c := New(srv.URL, token, hc)
	c.TempDir = t.TempDir()
	return c, &hits
}

func TestMetadata(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantStorage float64
		wantParams  uint64
	}{
		{"numeric storage", `{"usedStorage": 1073741824, "safetensors": {"total": 7000000000}, "siblings": [{"rfilename": "a.safetensors"}, {"rfilename": "README.md"}]}`, 1 << 30, 7_000_000_000},
		{"string storage", `{"usedStorage": "10737418240", "safetensors": {"total": 70000000}, "siblings": [{"rfilename": "a.safetensors"}, {"rfilename": "README.md"}]}`, 10 << 30, 70_000_000},
		{"no safetensors", `{"usedStorage": "0", "safetensors": {}, "siblings": [{"rfilename": "a.safetensors"}, {"rfilename": "README.md"}]}`, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, "hf_test", func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/models/meta-llama/Llama-2-7b" {
					t.Errorf("path = %s", r.URL.Path)
				}
				if got := r.URL.Query()["fields"]; len(got) != 3 {
					t.Errorf("fields = %v", got)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer hf_test" {
					t.Errorf("Authorization = %q", got)
				}
				w.Write([]byte(tt.body))
			})

			meta, err := c.Metadata(context.Background(), "meta-llama/Llama-2-7b")
			if err != nil {
				t.Fatalf("Metadata: %v", err)
			}
			if meta.UsedStorage != tt.wantStorage {
				t.Errorf("UsedStorage = %v, want %v", meta.UsedStorage, tt.wantStorage)
			}
			if meta.ParamCount != tt.wantParams {
				t.Errorf("ParamCount = %d, want %d", meta.ParamCount, tt.wantParams)
			}
			if len(meta.Files) != 2 || meta.Files[0] != "a.safetensors" {
				t.Errorf("Files = %v", meta.Files)
			}
		})
	}
}

func TestMetadataStatusMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{"unauthorized", http.StatusUnauthorized, "", ErrAuthentication, ""},
		{"forbidden", http.StatusForbidden, "", ErrAuthorization, ""},
		{"not found", http.StatusNotFound, `{"error":"Repository not found"}`, ErrNotFound, ""},
		{"rate limited", http.StatusTooManyRequests, "", ErrRateLimited, ""},
		{"json error body", http.StatusInternalServerError, `{"error":"Internal Error"}`, ErrUpstream, "Internal Error"},
		{"raw error body", http.StatusBadGateway, "bad gateway", ErrUpstream, "bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, "hf_test", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Metadata(context.Background(), "a/b")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tt.want != ErrUpstream {
				return
			}
			var ue *UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("expected *UpstreamError, got %T", err)
			}
			if ue.StatusCode != tt.status || ue.Message != tt.message {
				t.Errorf("UpstreamError = %d %q, want %d %q", ue.StatusCode, ue.Message, tt.status, tt.message)
			}
		})
	}
}

func TestRegistryWideFailuresStopEstimation(t *testing.T) {
	tests := []struct {
		status      int
		unavailable bool
	}{
		{http.StatusUnauthorized, true},
		{http.StatusForbidden, true},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, _ := newTestClient(t, "hf_test", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := c.Metadata(context.Background(), "a/b")
			if got := errors.Is(err, estimate.ErrSourceUnavailable); got != tt.unavailable {
				t.Errorf("errors.Is(%v, ErrSourceUnavailable) = %v, want %v", err, got, tt.unavailable)
			}
		})
	}
}

func TestRateLimitedSamplingFailsEstimate(t *testing.T) {
	c, _ := newTestClient(t, "hf_test", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/models/a/b" {
			w.Write([]byte(`{"usedStorage":1,"siblings":[{"rfilename":"m.bin"},{"rfilename":"n.safetensors"}]}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	})

	res, err := (&estimate.Estimator{Source: c}).Run(context.Background(), "a/b")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v (result %+v)", err, res)
	}
	if err.Error() != "sizing n.safetensors: "+ErrRateLimited.Error() {
		t.Errorf("message = %q", err.Error())
	}
}

func TestMetadataTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	c := New(endpoint, "hf_test", httpclient.New(httpclient.WithBearerToken("hf_test")))
	_, err := c.Metadata(context.Background(), "a/b")

	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %v", err)
	}
	if ue.StatusCode != 0 || ue.Err == nil {
		t.Errorf("UpstreamError = %+v, want transport failure", ue)
	}
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, estimate.ErrSourceUnavailable) {
		t.Error("expected errors.Is(err, ErrUpstream) and ErrSourceUnavailable")
	}
}

func TestGuardsPrecedeNetwork(t *testing.T) {
	tests := []struct {
		name  string
		token string
		repo  string
		want  error
	}{
		{"missing credential", "", "a/b", ErrMissingCredential},
		{"invalid id", "hf_test", "not-a-repo", estimate.ErrInvalidIdentifier},
		{"invalid id without credential", "", "bad id", estimate.ErrInvalidIdentifier},
		{"parent segments", "hf_test", "../..", estimate.ErrInvalidIdentifier},
		{"parent model segment", "hf_test", "owner/..", estimate.ErrInvalidIdentifier},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, hits := newTestClient(t, tt.token, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			})
			ctx := context.Background()

			if _, err := c.Metadata(ctx, tt.repo); !errors.Is(err, tt.want) {
				t.Errorf("Metadata: expected %v, got %v", tt.want, err)
			}
			if _, err := c.FileSize(ctx, tt.repo, "a.bin"); !errors.Is(err, tt.want) {
				t.Errorf("FileSize: expected %v, got %v", tt.want, err)
			}
			if _, err := c.ReadFile(ctx, tt.repo, estimate.ConfigFile); !errors.Is(err, tt.want) {
				t.Errorf("ReadFile: expected %v, got %v", tt.want, err)
			}
			if n := atomic.LoadInt32(hits); n != 0 {
				t.Errorf("server hit %d times", n)
			}
		})
	}
}

func TestFileSize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want estimate.FileSize
	}{
		{"lfs size preferred", `[{"type":"file","path":"m.safetensors","size":135,"oid":"x","lfs":{"oid":"y","size":4976698672}}]`, estimate.KnownSize(4976698672)},
		{"plain size", `[{"type":"file","path":"m.onnx","size":2048}]`, estimate.KnownSize(2048)},
		{"empty listing", `[]`, estimate.UnknownSize},
		{"zero size", `[{"type":"file","path":"m.bin","size":0}]`, estimate.UnknownSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, "hf_test", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/api/models/a/b/paths-info/main" {
					t.Errorf("request = %s %s", r.Method, r.URL.Path)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("ParseForm: %v", err)
				}
				if got := r.PostForm.Get("paths"); got != "model-00001.safetensors" {
					t.Errorf("paths = %q", got)
				}
				w.Write([]byte(tt.body))
			})

			got, err := c.FileSize(context.Background(), "a/b", "model-00001.safetensors")
			if err != nil {
				t.Fatalf("FileSize: %v", err)
			}
			if got != tt.want {
				t.Errorf("FileSize = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestReadFileStagesDownload(t *testing.T) {
	c, _ := newTestClient(t, "hf_test", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/owner/model/resolve/main/config.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"torch_dtype":"bfloat16"}`))
	})

	data, err := c.ReadFile(context.Background(), "owner/model", estimate.ConfigFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"torch_dtype":"bfloat16"}` {
		t.Errorf("data = %s", data)
	}

	staged := filepath.Join(c.TempDir, "hfest", "owner", "model", "config.json")
	if _, err := os.Stat(staged); err != nil {
		t.Errorf("expected staged file at %s: %v", staged, err)
	}
}

func TestReadFileStaysInsideStagingDir(t *testing.T) {
	c, hits := newTestClient(t, "hf_test", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	})

	if _, err := c.ReadFile(context.Background(), "owner/model", "../../../escaped.json"); err == nil {
		t.Fatal("expected a name escaping the staging dir to be refused")
	}
	if n := atomic.LoadInt32(hits); n != 0 {
		t.Errorf("server hit %d times", n)
	}
	if _, err := os.Stat(filepath.Join(c.TempDir, "escaped.json")); !os.IsNotExist(err) {
		t.Errorf("file written outside staging dir: %v", err)
	}
}

func TestClientDrivesEstimator(t *testing.T) {
	c, _ := newTestClient(t, "hf_test", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/models/a/b":
			w.Write([]byte(`{"usedStorage":1,"safetensors":{"total":7000000000},"siblings":[{"rfilename":"model.safetensors"}]}`))
		case "/a/b/resolve/main/config.json":
			w.Write([]byte(`{"torch_dtype":"float16"}`))
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	res, err := (&estimate.Estimator{Source: c}).Run(context.Background(), "a/b")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := res.Bucket(estimate.FormatSafetensors).Bytes; got != 14_000_000_000 {
		t.Errorf("bytes = %d, want 14000000000", got)
	}
}
