// Package store persists the entire platform state — users, roles,
// crushers, events, alerts — as a single JSON document on disk. Every
// mutation is a whole-document read-modify-write executed under one mutex,
// so two logical operations can never interleave between read and write
// (the lost-update hazard of the naive file-DB approach).
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/britebottle/fleet/internal/model"
)

// SchemaVersion is the current document schema. Version 1 carried the flat
// per-user "roles" tag array; version 2 references roles by roleId. The
// legacy migration in Reconcile runs only for documents below 2 and can be
// deleted once no v1 data remains.
const SchemaVersion = 2

// Document is the logical shape of the persisted state.
type Document struct {
	SchemaVersion  int                   `json:"schemaVersion"`
	Users          []model.User          `json:"users"`
	Roles          []model.Role          `json:"roles"`
	Crushers       []model.Crusher       `json:"crushers"`
	Events         []model.Event         `json:"events"`
	Alerts         []model.Alert         `json:"alerts"`
	PasswordResets []model.PasswordReset `json:"passwordResets"`
	Routes         []model.Route         `json:"routes"`
	Settings       map[string]string     `json:"settings,omitempty"`
}

// Store owns the document. The whole document is the unit of locking: View
// and Update serialize through a single mutex, and Update persists the
// mutated document atomically (write temp file, rename) before returning.
type Store struct {
	path string

	mu  sync.Mutex
	doc *Document
}

// Open loads the document at path, or creates a freshly seeded one if the
// file does not exist. The parent directory is created as needed.
func Open(path string, seed SeedOptions) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{path: path}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse document %s: %w", path, err)
		}
		s.doc = &doc
	case os.IsNotExist(err):
		doc, err := seedDocument(seed)
		if err != nil {
			return nil, fmt.Errorf("seed document: %w", err)
		}
		s.doc = doc
		if err := s.persist(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read document %s: %w", path, err)
	}

	return s, nil
}

// View runs fn with read access to the document. The document must not be
// mutated or retained past the call.
func (s *Store) View(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.doc)
}

// Update runs fn with write access to the document and persists the result.
// If fn returns an error nothing is written and the in-memory document is
// restored, so a failed invariant check never leaves a partial mutation.
func (s *Store) Update(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Work on a deep copy so a failing fn cannot corrupt current state.
	next, err := s.doc.clone()
	if err != nil {
		return err
	}
	if err := fn(next); err != nil {
		return err
	}
	prev := s.doc
	s.doc = next
	if err := s.persist(); err != nil {
		s.doc = prev
		return err
	}
	return nil
}

// persist writes the document atomically. Callers must hold s.mu.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

func (d *Document) clone() (*Document, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	var out Document
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone document: %w", err)
	}
	return &out, nil
}

// ---------------------------------------------------------------------------
// Read helpers
// ---------------------------------------------------------------------------

// UserByID returns a copy of the user with the given ID.
func (s *Store) UserByID(id string) (*model.User, error) {
	var out *model.User
	err := s.View(func(doc *Document) error {
		for i := range doc.Users {
			if doc.Users[i].ID == id {
				u := doc.Users[i]
				out = &u
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

// UserByEmail returns a copy of the user with the given email address.
// Email comparison is case-insensitive.
func (s *Store) UserByEmail(email string) (*model.User, error) {
	var out *model.User
	err := s.View(func(doc *Document) error {
		for i := range doc.Users {
			if strings.EqualFold(doc.Users[i].Email, email) {
				u := doc.Users[i]
				out = &u
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

// RoleByID returns a copy of the role with the given ID.
func (s *Store) RoleByID(id string) (*model.Role, error) {
	var out *model.Role
	err := s.View(func(doc *Document) error {
		for i := range doc.Roles {
			if doc.Roles[i].ID == id {
				r := doc.Roles[i]
				out = &r
				return nil
			}
		}
		return ErrNotFound
	})
	return out, err
}

// Roles returns a copy of the full role collection.
func (s *Store) Roles() ([]model.Role, error) {
	var out []model.Role
	err := s.View(func(doc *Document) error {
		out = append(out, doc.Roles...)
		return nil
	})
	return out, err
}

// GetSetting returns the value of a server setting, or ErrNotFound.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var out string
	err := s.View(func(doc *Document) error {
		v, ok := doc.Settings[key]
		if !ok {
			return ErrNotFound
		}
		out = v
		return nil
	})
	return out, err
}

// SetSetting stores a server setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	return s.Update(func(doc *Document) error {
		if doc.Settings == nil {
			doc.Settings = map[string]string{}
		}
		doc.Settings[key] = value
		return nil
	})
}
