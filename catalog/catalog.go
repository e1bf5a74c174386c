// Package catalog is the read-only content collaborator: item lookup for
// orders, derived-item expansion for recipes, and FAQ answer search.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"github.com/bytedance/sonic"
)

// Entry is one catalog item. Related lists the component ids a derived entry
// (e.g. a recipe) expands to.
type Entry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Price       float64  `json:"price,omitempty"`
	Category    string   `json:"category,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Related     []string `json:"related,omitempty"`
	Description string   `json:"description,omitempty"`
}

// FAQEntry is one question/answer pair for the answer lookup.
type FAQEntry struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags,omitempty"`
}

// Source is the contract the engine consumes. Lookup resolves an id or a
// case-insensitive name to a single canonical entry; Expand resolves a
// derived entry to its components.
type Source interface {
	Lookup(idOrName string) (*Entry, bool)
	Expand(idOrName string) ([]*Entry, error)
}

// Answerer is the optional FAQ side of a source. Sources that implement it
// let the engine answer free-text product questions mid-collection.
type Answerer interface {
	Answer(query string) (*FAQEntry, bool)
}

// Memory is an in-memory Source backed by a JSON file or literal entries.
type Memory struct {
	byID   map[string]*Entry
	byName map[string]*Entry
	order  []string
	faq    []*FAQEntry
}

// NewMemory builds a memory catalog from entries.
func NewMemory(entries ...*Entry) *Memory {
	m := &Memory{
		byID:   make(map[string]*Entry),
		byName: make(map[string]*Entry),
	}
	for _, e := range entries {
		m.Add(e)
	}
	return m
}

// Add registers an entry; later entries with the same id replace earlier ones.
func (m *Memory) Add(e *Entry) {
	if e == nil || e.ID == "" {
		return
	}
	if _, exists := m.byID[e.ID]; !exists {
		m.order = append(m.order, e.ID)
	}
	m.byID[e.ID] = e
	if e.Name != "" {
		m.byName[strings.ToLower(e.Name)] = e
	}
}

// AddFAQ registers a question/answer pair.
func (m *Memory) AddFAQ(entries ...*FAQEntry) {
	m.faq = append(m.faq, entries...)
}

// Lookup resolves an id or case-insensitive name.
func (m *Memory) Lookup(idOrName string) (*Entry, bool) {
	key := strings.TrimSpace(idOrName)
	if e, ok := m.byID[key]; ok {
		return e, true
	}
	if e, ok := m.byName[strings.ToLower(key)]; ok {
		return e, true
	}
	return nil, false
}

// Expand resolves a derived entry to its component entries. Only exact ids
// listed in Related resolve; ambiguity never leaves the catalog.
func (m *Memory) Expand(idOrName string) ([]*Entry, error) {
	e, ok := m.Lookup(idOrName)
	if !ok {
		return nil, fmt.Errorf("catalog: no entry for %q", idOrName)
	}
	if len(e.Related) == 0 {
		return nil, fmt.Errorf("catalog: %q has no components", e.ID)
	}
	out := make([]*Entry, 0, len(e.Related))
	for _, id := range e.Related {
		component, ok := m.byID[id]
		if !ok {
			return nil, fmt.Errorf("catalog: %q references unknown component %q", e.ID, id)
		}
		out = append(out, component)
	}
	return out, nil
}

// Entries returns all entries in insertion order.
func (m *Memory) Entries() []*Entry {
	out := make([]*Entry, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// Search filters entries by category and/or tag, both case-insensitive.
func (m *Memory) Search(category, tag string) []*Entry {
	var out []*Entry
	for _, id := range m.order {
		e := m.byID[id]
		if category != "" && !strings.EqualFold(e.Category, category) {
			continue
		}
		if tag != "" && !hasTag(e.Tags, tag) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Answer finds the best FAQ entry for a free-text question by token overlap:
// tag hits weigh most, question hits more than answer hits. Short filler
// tokens are skipped and a lone answer hit is not enough, so ordinary slot
// answers do not match. Returns false when nothing scores.
func (m *Memory) Answer(query string) (*FAQEntry, bool) {
	tokens := strings.Fields(strings.ToLower(query))
	var best *FAQEntry
	bestScore := 0
	for _, e := range m.faq {
		question := strings.ToLower(e.Question)
		answer := strings.ToLower(e.Answer)
		score := 0
		for _, token := range tokens {
			if len(token) < 4 {
				continue
			}
			if strings.Contains(question, token) {
				score += 2
			}
			if strings.Contains(answer, token) {
				score++
			}
			if hasTag(e.Tags, token) {
				score += 3
			}
		}
		if score > bestScore {
			best = e
			bestScore = score
		}
	}
	if bestScore < 2 {
		return nil, false
	}
	return best, true
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

type fileDocument struct {
	Items []*Entry    `json:"items"`
	FAQ   []*FAQEntry `json:"faq,omitempty"`
}

// LoadFile reads a JSON catalog document: {"items": [...], "faq": [...]}.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	var doc fileDocument
	if err := sonic.Unmarshal(data, &doc); err != nil {
		// Also accept a bare item array, the shape the ordering demos used.
		var items []*Entry
		if err2 := sonic.Unmarshal(data, &items); err2 != nil {
			return nil, fmt.Errorf("catalog: decode %s: %w", path, err)
		}
		doc.Items = items
	}
	m := NewMemory(doc.Items...)
	m.AddFAQ(doc.FAQ...)
	return m, nil
}
