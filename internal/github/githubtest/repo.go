// Package githubtest provides an in-memory repository that stands in for the
// GitHub client in tests.
package githubtest

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/colonyops/tasksync/internal/github"
)

// Repo serves a fixed file set through the same calls as *github.Client.
// Blob SHAs are derived from content, so editing a file changes its SHA.
type Repo struct {
	mu sync.Mutex

	files map[string]string

	// TreeErr fails every Tree call.
	TreeErr error
	// FileErrs fails FileContent for specific paths.
	FileErrs map[string]error
	// Delay is applied to every FileContent call.
	Delay time.Duration

	calls       map[string]int
	inflight    int
	maxInflight int
}

// NewRepo creates a Repo holding files, keyed by path.
func NewRepo(files map[string]string) *Repo {
	if files == nil {
		files = map[string]string{}
	}
	return &Repo{
		files:    files,
		FileErrs: map[string]error{},
		calls:    map[string]int{},
	}
}

// SHA returns the blob SHA Repo reports for content.
func SHA(content string) string {
	return fmt.Sprintf("%x", sha1.Sum([]byte(content)))
}

// Set writes a file.
func (r *Repo) Set(path, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files[path] = content
}

// Remove deletes a file.
func (r *Repo) Remove(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, path)
}

// Calls returns how many times path's content was requested.
func (r *Repo) Calls(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[path]
}

// MaxInflight returns the highest number of concurrent FileContent calls seen.
func (r *Repo) MaxInflight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxInflight
}

// Tree lists every file as a blob, sorted by path, plus a "src" tree entry.
func (r *Repo) Tree(_ context.Context, _, _, _ string) ([]github.TreeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.TreeErr != nil {
		return nil, r.TreeErr
	}

	paths := make([]string, 0, len(r.files))
	for p := range r.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	entries := []github.TreeEntry{{Path: "src", Type: github.EntryTree, SHA: "tree-src"}}
	for _, p := range paths {
		entries = append(entries, github.TreeEntry{
			Path: p,
			Type: github.EntryBlob,
			SHA:  SHA(r.files[p]),
			Size: len(r.files[p]),
		})
	}
	return entries, nil
}

// FileContent returns base64 content wrapped at 60 columns the way the
// contents API does. Unknown paths fail with a 404.
func (r *Repo) FileContent(_ context.Context, _, _, path, _ string) (string, error) {
	r.mu.Lock()
	r.calls[path]++
	r.inflight++
	r.maxInflight = max(r.maxInflight, r.inflight)
	content, ok := r.files[path]
	err := r.FileErrs[path]
	delay := r.Delay
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inflight--
		r.mu.Unlock()
	}()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", &github.Error{Kind: github.KindAPI, Status: 404, Message: "Not Found"}
	}

	enc := base64.StdEncoding.EncodeToString([]byte(content))
	var b strings.Builder
	for len(enc) > 60 {
		b.WriteString(enc[:60])
		b.WriteString("\n")
		enc = enc[60:]
	}
	b.WriteString(enc)
	return b.String(), nil
}
