// Package policy loads and serves the exclusion policy table: the curated
// mapping from plugin and theme names to the JavaScript assets that need
// attention when scripts are delayed.
package policy

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mamamialezatoz/go-pmaudit/internal/parser"
)

// Owner kinds used as key prefixes in the table
const (
	KindPlugin = "plugins"
	KindTheme  = "themes"
)

var (
	// ErrInvalidKey is returned for keys not of the form "plugins/<name>" or "themes/<name>"
	ErrInvalidKey = errors.New("invalid policy key")
	// ErrEmptyDocument is returned when the document has no entries section at all
	ErrEmptyDocument = errors.New("policy document has no entries")
)

// Document is the on-disk form of the policy table
type Document struct {
	Version string              `yaml:"version" json:"version"`
	Entries map[string][]string `yaml:"entries" json:"entries"`
}

// Snapshot is an immutable, normalized copy of the policy table
type Snapshot struct {
	version  string
	digest   string
	loadedAt time.Time
	entries  map[string][]string
}

// Parse decodes and normalizes a YAML policy document
func Parse(data []byte) (*Snapshot, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	if doc.Entries == nil {
		return nil, ErrEmptyDocument
	}

	sum := sha256.Sum256(data)
	return newSnapshot(doc, hex.EncodeToString(sum[:])[:12])
}

// FromDocument builds a snapshot from an in-memory document
func FromDocument(doc Document) (*Snapshot, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode policy: %w", err)
	}
	sum := sha256.Sum256(data)
	return newSnapshot(doc, hex.EncodeToString(sum[:])[:12])
}

func newSnapshot(doc Document, digest string) (*Snapshot, error) {
	rawKeys := make([]string, 0, len(doc.Entries))
	for rawKey := range doc.Entries {
		rawKeys = append(rawKeys, rawKey)
	}
	// Keys differing only in case collapse into one entry, merged in sorted
	// raw key order so the asset order is the same on every load
	sort.Strings(rawKeys)

	entries := make(map[string][]string, len(doc.Entries))
	for _, rawKey := range rawKeys {
		key, err := normalizeKey(rawKey)
		if err != nil {
			return nil, err
		}
		entries[key] = appendUnique(entries[key], doc.Entries[rawKey])
	}

	return &Snapshot{
		version:  strings.TrimSpace(doc.Version),
		digest:   digest,
		loadedAt: time.Now(),
		entries:  entries,
	}, nil
}

// normalizeKey lowercases a key and checks its shape
func normalizeKey(raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	kind, name, ok := strings.Cut(key, "/")
	if !ok || name == "" || strings.Contains(name, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	if kind != KindPlugin && kind != KindTheme {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, raw)
	}
	return key, nil
}

// appendUnique appends lowercased, non-empty assets not already present
func appendUnique(dst, assets []string) []string {
	seen := make(map[string]struct{}, len(dst)+len(assets))
	for _, a := range dst {
		seen[a] = struct{}{}
	}
	for _, a := range assets {
		a = parser.NormalizeAsset(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		dst = append(dst, a)
	}
	return dst
}

// Key builds the table key for an owner of the given kind
func Key(kind, name string) string {
	return kind + "/" + strings.ToLower(name)
}

// Lookup returns the asset list for an owner, in table order
func (s *Snapshot) Lookup(kind, name string) ([]string, bool) {
	if s == nil {
		return nil, false
	}
	assets, ok := s.entries[Key(kind, name)]
	return assets, ok
}

// Keys returns every key in the table, sorted
func (s *Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of owners in the table
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Version is the version declared by the document
func (s *Snapshot) Version() string {
	return s.version
}

// Digest is a short content hash identifying this snapshot
func (s *Snapshot) Digest() string {
	return s.digest
}

// LoadedAt is when the snapshot was built
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Document returns a copy of the normalized table
func (s *Snapshot) Document() Document {
	entries := make(map[string][]string, len(s.entries))
	for k, v := range s.entries {
		entries[k] = append([]string(nil), v...)
	}
	return Document{Version: s.version, Entries: entries}
}
