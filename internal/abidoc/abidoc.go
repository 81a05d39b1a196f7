package abidoc

import (
	"encoding/json"
	"fmt"
)

// Entry kinds as they appear in ABI JSON documents.
const (
	KindFunction    = "function"
	KindEvent       = "event"
	KindConstructor = "constructor"
	KindFallback    = "fallback"
	KindReceive     = "receive"
	KindError       = "error"
)

// Param is one typed parameter of an ABI entry. Tuples carry their
// component parameters recursively.
type Param struct {
	Name         string  `json:"name,omitempty"`
	Type         string  `json:"type"`
	InternalType string  `json:"internalType,omitempty"`
	Components   []Param `json:"components,omitempty"`
	Indexed      bool    `json:"indexed,omitempty"`
}

// Entry is a single element of a contract ABI document. Entries are
// treated as immutable once parsed.
type Entry struct {
	Type            string  `json:"type"`
	Name            string  `json:"name,omitempty"`
	Inputs          []Param `json:"inputs,omitempty"`
	Outputs         []Param `json:"outputs,omitempty"`
	StateMutability string  `json:"stateMutability,omitempty"`
	Anonymous       bool    `json:"anonymous,omitempty"`
}

// Document is an ordered contract ABI. Order is preserved verbatim from
// the source for output fidelity.
type Document []Entry

// Parse decodes an ABI JSON array into a Document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return doc, nil
}

// JSON renders the document as indented ABI JSON.
func (d Document) JSON() ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal abi: %w", err)
	}
	return out, nil
}

// Events returns the event entries of the document in original order.
func (d Document) Events() []Entry {
	var evs []Entry
	for _, e := range d {
		if e.Type == KindEvent {
			evs = append(evs, e)
		}
	}
	return evs
}

// Function looks up a function entry by name.
func (d Document) Function(name string) (Entry, bool) {
	for _, e := range d {
		if e.Type == KindFunction && e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}
