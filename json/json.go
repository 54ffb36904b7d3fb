// Package json implements the user alias store backed by JSON files.
package json

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fwojciec/pulse"
)

// Compile-time interface check.
var _ pulse.Resolver = (*Store)(nil)

// userDTO is the on-disk representation of one alias entry.
type userDTO struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	GitHub string `json:"github"`
}

// DefaultUsers returns the mapping written when no alias file exists yet.
func DefaultUsers() []pulse.User {
	return []pulse.User{
		{Key: "john", Name: "John Doe", Email: "john@company.com", GitHub: "johndoe"},
		{Key: "sarah", Name: "Sarah Smith", Email: "sarah@company.com", GitHub: "sarahsmith"},
		{Key: "mike", Name: "Mike Johnson", Email: "mike@company.com", GitHub: "mikejohnson"},
	}
}

// Store maps human-friendly names and emails to provider identifiers.
// It is read-only after construction and safe for concurrent use.
type Store struct {
	users map[string]pulse.User
	keys  []string
}

// NewStore creates a Store from users. Keys are matched case-insensitively;
// a later user with the same key replaces an earlier one.
func NewStore(users []pulse.User) *Store {
	s := &Store{users: make(map[string]pulse.User, len(users))}
	for _, u := range users {
		key := strings.ToLower(strings.TrimSpace(u.Key))
		if key == "" {
			continue
		}
		u.Key = key
		s.users[key] = u
	}
	s.keys = make([]string, 0, len(s.users))
	for k := range s.users {
		s.keys = append(s.keys, k)
	}
	sort.Strings(s.keys)
	return s
}

// Open loads every file matching pattern, which may contain doublestar
// wildcards. Files are merged in lexical order. If pattern names a single
// file that does not exist, the default mapping is written there and used.
func Open(pattern string) (*Store, error) {
	if !doublestar.ValidatePathPattern(pattern) {
		return nil, fmt.Errorf("invalid alias file pattern %q", pattern)
	}
	if !hasMeta(pattern) {
		if _, err := os.Stat(pattern); errors.Is(err, fs.ErrNotExist) {
			users := DefaultUsers()
			if err := Save(pattern, users); err != nil {
				return nil, err
			}
			return NewStore(users), nil
		}
	}

	matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no alias files match %q: %w", pattern, fs.ErrNotExist)
	}
	sort.Strings(matches)

	var users []pulse.User
	for _, path := range matches {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		users = append(users, loaded...)
	}
	return NewStore(users), nil
}

// Load reads one alias file. Users are returned in key order.
func Load(path string) ([]pulse.User, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw map[string]userDTO
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	users := make([]pulse.User, 0, len(keys))
	for _, k := range keys {
		d := raw[k]
		users = append(users, pulse.User{Key: k, Name: d.Name, Email: d.Email, GitHub: d.GitHub})
	}
	return users, nil
}

// Save writes users to path, creating parent directories as needed.
// The file is replaced atomically.
func Save(path string, users []pulse.User) error {
	raw := make(map[string]userDTO, len(users))
	for _, u := range users {
		raw[u.Key] = userDTO{Name: u.Name, Email: u.Email, GitHub: u.GitHub}
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create directories: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Find returns the user matching identifier. Matching is case-insensitive
// and tries, in order: key, full name, email, then a substring of the name.
func (s *Store) Find(identifier string) (pulse.User, bool) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if id == "" {
		return pulse.User{}, false
	}
	if u, ok := s.users[id]; ok {
		return u, true
	}
	for _, match := range []func(pulse.User) bool{
		func(u pulse.User) bool { return strings.ToLower(u.Name) == id },
		func(u pulse.User) bool { return strings.ToLower(u.Email) == id },
		func(u pulse.User) bool { return strings.Contains(strings.ToLower(u.Name), id) },
	} {
		for _, k := range s.keys {
			if u := s.users[k]; match(u) {
				return u, true
			}
		}
	}
	return pulse.User{}, false
}

// Resolve returns the email for SystemIssues and the GitHub login for
// SystemRepos. An empty target field counts as no match.
func (s *Store) Resolve(identifier string, system pulse.System) (string, bool) {
	u, ok := s.Find(identifier)
	if !ok {
		return "", false
	}
	var v string
	switch system {
	case pulse.SystemIssues:
		v = u.Email
	case pulse.SystemRepos:
		v = u.GitHub
	}
	return v, v != ""
}

// Known lists users as "key: Name" in key order.
func (s *Store) Known() []string {
	out := make([]string, len(s.keys))
	for i, k := range s.keys {
		out[i] = fmt.Sprintf("%s: %s", k, s.users[k].Name)
	}
	return out
}

// Users returns all users in key order.
func (s *Store) Users() []pulse.User {
	out := make([]pulse.User, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.users[k]
	}
	return out
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[{`)
}
