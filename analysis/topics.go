package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fleure/fleure-db/dblog"
	"github.com/fleure/fleure-db/store/jsonfile"
)

// Document is the TF-IDF vector of an erratum description, keyed by term id.
type Document struct {
	Advisory string          `json:"advisory"`
	Weights  map[int]float64 `json:"weights"`
}

// TopicModel is a TF-IDF model of errata descriptions.
type TopicModel struct {
	Dictionary map[string]int `json:"dictionary"`
	IDF        []float64      `json:"idf"`
	Documents  []Document     `json:"documents"`

	terms []string
	index map[string]int
}

// Similarity is an advisory and how close it is to another one, in [0, 1].
type Similarity struct {
	Advisory string  `json:"advisory"`
	Score    float64 `json:"score"`
}

// Term is a dictionary word with its weight.
type Term struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
}

// NewTopicModel builds the model of the descriptions of ers. Descriptions
// are lowercased and stemmed, and stopwords and punctuation are dropped.
func NewTopicModel(ers []Erratum) *TopicModel {
	m := &TopicModel{Dictionary: make(map[string]int)}

	tokensets := make([][]string, len(ers))
	df := make(map[int]int)
	for i, e := range ers {
		seen := make(map[int]bool)
		for _, tok := range Tokenize(strings.ToLower(e.Description), true, DefaultStopwords) {
			if !isWord(tok) {
				continue
			}
			id, ok := m.Dictionary[tok]
			if !ok {
				id = len(m.Dictionary)
				m.Dictionary[tok] = id
			}
			tokensets[i] = append(tokensets[i], tok)
			if !seen[id] {
				seen[id] = true
				df[id]++
			}
		}
	}

	n := float64(len(ers))
	m.IDF = make([]float64, len(m.Dictionary))
	for id, c := range df {
		m.IDF[id] = math.Log2(n / float64(c))
	}

	for i, e := range ers {
		tf := make(map[int]float64)
		for _, tok := range tokensets[i] {
			tf[m.Dictionary[tok]]++
		}
		weights := make(map[int]float64, len(tf))
		var norm float64
		for id, c := range tf {
			w := c * m.IDF[id]
			if w == 0 {
				continue
			}
			weights[id] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)
		for id := range weights {
			weights[id] /= norm
		}
		m.Documents = append(m.Documents, Document{Advisory: e.Advisory, Weights: weights})
	}

	m.reindex()
	dblog.L.Debug("topic model: %d documents, %d terms", len(m.Documents), len(m.Dictionary))
	return m
}

func isWord(tok string) bool {
	for _, r := range tok {
		if r == '_' || ('0' <= r && r <= '9') || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r > 0x7f {
			return true
		}
	}
	return false
}

func (m *TopicModel) reindex() {
	m.terms = make([]string, len(m.Dictionary))
	for t, id := range m.Dictionary {
		if id >= 0 && id < len(m.terms) {
			m.terms[id] = t
		}
	}
	m.index = make(map[string]int, len(m.Documents))
	for i, d := range m.Documents {
		m.index[d.Advisory] = i
	}
}

// CosineSimilarity computes the cosine similarity between two sparse
// vectors. Returns 0 if either is a zero vector.
func CosineSimilarity(a, b map[int]float64) float64 {
	var dot, normA, normB float64
	for id, wa := range a {
		dot += wa * b[id]
		normA += wa * wa
	}
	for _, wb := range b {
		normB += wb * wb
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// Similar returns the n errata most similar to advisory, best first.
// Errata sharing no term with it are left out.
func (m *TopicModel) Similar(advisory string, n int) ([]Similarity, error) {
	i, ok := m.index[advisory]
	if !ok {
		return nil, fmt.Errorf("unknown advisory: %s", advisory)
	}
	doc := m.Documents[i]

	var sims []Similarity
	for j, d := range m.Documents {
		if j == i {
			continue
		}
		if s := CosineSimilarity(doc.Weights, d.Weights); s > 0 {
			sims = append(sims, Similarity{Advisory: d.Advisory, Score: s})
		}
	}
	sort.SliceStable(sims, func(a, b int) bool { return sims[a].Score > sims[b].Score })
	if n > 0 && len(sims) > n {
		sims = sims[:n]
	}
	return sims, nil
}

// TopTerms returns the n highest weighted terms of advisory.
func (m *TopicModel) TopTerms(advisory string, n int) ([]Term, error) {
	i, ok := m.index[advisory]
	if !ok {
		return nil, fmt.Errorf("unknown advisory: %s", advisory)
	}
	return m.top(m.Documents[i].Weights, n), nil
}

// Topics returns the n terms weighing most over all errata.
func (m *TopicModel) Topics(n int) []Term {
	sum := make(map[int]float64)
	for _, d := range m.Documents {
		for id, w := range d.Weights {
			sum[id] += w
		}
	}
	return m.top(sum, n)
}

func (m *TopicModel) top(weights map[int]float64, n int) []Term {
	terms := make([]Term, 0, len(weights))
	for id, w := range weights {
		terms = append(terms, Term{Term: m.terms[id], Weight: w})
	}
	sort.Slice(terms, func(i, j int) bool {
		if terms[i].Weight != terms[j].Weight {
			return terms[i].Weight > terms[j].Weight
		}
		return terms[i].Term < terms[j].Term
	})
	if n > 0 && len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

// Save writes the model as JSON to path.
func (m *TopicModel) Save(path string) error {
	if err := jsonfile.Save(m, path, ""); err != nil {
		return err
	}
	dblog.L.Info("Saved topic model: %s", path)
	return nil
}

// LoadTopicModel reads a model written by Save.
func LoadTopicModel(path string) (*TopicModel, error) {
	var m TopicModel
	if err := jsonfile.Load(path, &m); err != nil {
		return nil, err
	}
	m.reindex()
	return &m, nil
}
