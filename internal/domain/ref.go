package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Referable is implemented by snapshot types that can sit behind a Ref.
type Referable interface {
	RefID() string
}

// Ref is a weak reference to an entity owned elsewhere: an id plus an
// optional denormalized snapshot. The holder owns only the cached copy.
//
// On the wire a Ref is either null, a bare id string, or the snapshot
// object itself (whose "id" becomes the reference id).
type Ref[T Referable] struct {
	ID       string
	Snapshot *T
}

// RefTo builds a reference carrying only an id.
func RefTo[T Referable](id string) Ref[T] {
	return Ref[T]{ID: id}
}

// RefOf builds a reference from a snapshot.
func RefOf[T Referable](v T) Ref[T] {
	return Ref[T]{ID: v.RefID(), Snapshot: &v}
}

// IsSet reports whether the reference points anywhere.
func (r Ref[T]) IsSet() bool {
	return r.ID != ""
}

// HasSnapshot reports whether a cached copy is present.
func (r Ref[T]) HasSnapshot() bool {
	return r.Snapshot != nil
}

// Get returns the cached snapshot, if any.
func (r Ref[T]) Get() (T, bool) {
	if r.Snapshot == nil {
		var zero T
		return zero, false
	}
	return *r.Snapshot, true
}

// Refresh replaces the cached snapshot. The reference id follows the snapshot.
func (r Ref[T]) Refresh(v T) Ref[T] {
	return RefOf(v)
}

// DropSnapshot discards the cached copy and keeps the id.
func (r Ref[T]) DropSnapshot() Ref[T] {
	return Ref[T]{ID: r.ID}
}

// Consistent reports whether the snapshot, if any, describes the referenced id.
// A stale snapshot left behind after the id changed is inconsistent.
func (r Ref[T]) Consistent() bool {
	if r.Snapshot == nil {
		return true
	}
	return (*r.Snapshot).RefID() == r.ID
}

// MarshalJSON writes null, the bare id, or the snapshot. Inconsistent
// snapshots are not written.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if !r.IsSet() {
		return []byte("null"), nil
	}
	if r.Snapshot != nil && r.Consistent() {
		return json.Marshal(*r.Snapshot)
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts null, an id string, or a snapshot object.
func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*r = Ref[T]{}

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &r.ID)
	case data[0] == '{':
		var v T
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		if v.RefID() == "" {
			return fmt.Errorf("%w: reference object has no id", ErrInvalidInput)
		}
		r.ID = v.RefID()
		r.Snapshot = &v
		return nil
	default:
		return fmt.Errorf("%w: reference must be null, string, or object", ErrInvalidInput)
	}
}

// Student is the cached view of a student.
type Student struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	StudentCode string `json:"studentCode,omitempty"`
	Major       string `json:"major,omitempty"`
}

func (s Student) RefID() string { return s.ID }

// Company is the cached view of a host company.
type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Industry string `json:"industry,omitempty"`
	Address  string `json:"address,omitempty"`
}

func (c Company) RefID() string { return c.ID }

// Mentor is the company-side supervisor.
type Mentor struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty"`
	Position  string `json:"position,omitempty"`
	CompanyID string `json:"companyId,omitempty"`
}

func (m Mentor) RefID() string { return m.ID }

// Teacher is the school-side supervisor.
type Teacher struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	Email      string `json:"email,omitempty"`
	Department string `json:"department,omitempty"`
}

func (t Teacher) RefID() string { return t.ID }

// BatchSummary is the cached view of a batch held by an internship.
type BatchSummary struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

func (b BatchSummary) RefID() string { return b.ID }

// InternshipSummary is the cached view of an internship held by contracts and evaluations.
type InternshipSummary struct {
	ID    string `json:"id"`
	Code  string `json:"code,omitempty"`
	Title string `json:"title,omitempty"`
}

func (i InternshipSummary) RefID() string { return i.ID }

// Evaluator is whoever filled in an evaluation.
type Evaluator struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

func (e Evaluator) RefID() string { return e.ID }
