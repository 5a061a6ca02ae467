package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/gitway/pkg/errors"
)

// rawSnapshot mirrors Snapshot with pointer fields so that missing
// required keys can be told apart from zero values.
type rawSnapshot struct {
	MinTime    *int64           `json:"mintime"`
	MaxTime    *int64           `json:"maxtime"`
	Branches   *[]Branch        `json:"branches"`
	References map[string][]Ref `json:"references"`
}

// Decode reads one snapshot from r and validates it.
func Decode(r io.Reader) (*Snapshot, error) {
	var raw rawSnapshot
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedSnapshot, err, "decode snapshot")
	}

	switch {
	case raw.MinTime == nil:
		return nil, errors.New(errors.ErrCodeMalformedSnapshot, "missing field %q", "mintime")
	case raw.MaxTime == nil:
		return nil, errors.New(errors.ErrCodeMalformedSnapshot, "missing field %q", "maxtime")
	case raw.Branches == nil:
		return nil, errors.New(errors.ErrCodeMalformedSnapshot, "missing field %q", "branches")
	}

	s := &Snapshot{
		MinTime:    *raw.MinTime,
		MaxTime:    *raw.MaxTime,
		Branches:   *raw.Branches,
		References: raw.References,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Unmarshal decodes a snapshot from JSON bytes.
func Unmarshal(data []byte) (*Snapshot, error) {
	return Decode(bytes.NewReader(data))
}

// ReadFile reads and decodes a snapshot file.
func ReadFile(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Validate checks the invariants Decode relies on. The window must be
// ordered and every branch must have a usable, unique name; node ids are
// derived from branch names.
func (s *Snapshot) Validate() error {
	if err := errors.ValidateWindow(s.MinTime, s.MaxTime); err != nil {
		return errors.Wrap(errors.ErrCodeMalformedSnapshot, err, "invalid window")
	}
	seen := make(map[string]int, len(s.Branches))
	for i, b := range s.Branches {
		if err := errors.ValidateBranchName(b.Name); err != nil {
			return errors.Wrap(errors.ErrCodeMalformedSnapshot, err, "branch %d", i)
		}
		if j, ok := seen[b.Name]; ok {
			return errors.New(errors.ErrCodeMalformedSnapshot, "branch %d repeats the name %q of branch %d", i, b.Name, j)
		}
		seen[b.Name] = i
	}
	return nil
}

// Marshal encodes a snapshot as compact JSON.
func Marshal(s *Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Write encodes a snapshot as indented JSON to w.
func Write(s *Snapshot, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteFile writes a snapshot as indented JSON to path.
func WriteFile(s *Snapshot, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Write(s, f)
}
