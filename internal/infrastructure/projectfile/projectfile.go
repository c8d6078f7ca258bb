// Package projectfile stores a project's graph as a JSON dump on disk.
//
// The dump is a two element array: an object of entity records keyed by UID,
// then an object of link records keyed by the link key string form
// ('source', 'target').
package projectfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/ersonp/casegraph/internal/domain/entities"
)

// File is a ports.ProjectFile backed by a single JSON file.
type File struct {
	path string
}

// New returns a File at path. Nothing is touched until Read or Write.
func New(path string) *File {
	return &File{path: path}
}

// Path returns the dump location.
func (f *File) Path() string { return f.path }

// Read implements ports.ProjectFile. A missing file yields an empty dump.
func (f *File) Read(_ context.Context) (*entities.GraphDump, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return &entities.GraphDump{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading dump: %w", err)
	}
	return Decode(bytes.NewReader(data))
}

// Write implements ports.ProjectFile. The dump is written to a temporary file
// in the same directory and renamed over the old one.
func (f *File) Write(_ context.Context, dump *entities.GraphDump) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".graph-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	// No-op once the rename succeeded.
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := Encode(tmp, dump); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing dump: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing dump: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replacing dump: %w", err)
	}
	return nil
}

// Encode writes dump in the project dump format.
func Encode(w io.Writer, dump *entities.GraphDump) error {
	nodes := make(map[string]*entities.Entity, len(dump.Entities))
	for _, e := range dump.Entities {
		nodes[e.UID] = e
	}
	edges := make(map[string]*entities.Link, len(dump.Links))
	for _, l := range dump.Links {
		edges[l.Key.String()] = l
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode([2]any{nodes, edges}); err != nil {
		return fmt.Errorf("encoding dump: %w", err)
	}
	return nil
}

// Decode reads a dump written by Encode. Entities come back ordered by UID
// and links by key. A node whose record lacks a uid takes its map key.
func Decode(r io.Reader) (*entities.GraphDump, error) {
	var parts [2]map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&parts); err != nil {
		return nil, fmt.Errorf("decoding dump: %w", err)
	}

	dump := &entities.GraphDump{}
	for uid, raw := range parts[0] {
		e := &entities.Entity{}
		if err := json.Unmarshal(raw, e); err != nil {
			return nil, fmt.Errorf("decoding entity %s: %w", uid, err)
		}
		if e.UID == "" {
			e.UID = uid
		}
		dump.Entities = append(dump.Entities, e)
	}
	for keyText, raw := range parts[1] {
		key, err := entities.ParseLinkKey(keyText)
		if err != nil {
			return nil, fmt.Errorf("decoding link key %s: %w", keyText, err)
		}
		l := &entities.Link{}
		if err := json.Unmarshal(raw, l); err != nil {
			return nil, fmt.Errorf("decoding link %s: %w", keyText, err)
		}
		l.Key = key
		dump.Links = append(dump.Links, l)
	}

	sort.Slice(dump.Entities, func(i, j int) bool { return dump.Entities[i].UID < dump.Entities[j].UID })
	sort.Slice(dump.Links, func(i, j int) bool {
		a, b := dump.Links[i].Key, dump.Links[j].Key
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Target < b.Target
	})
	return dump, nil
}
