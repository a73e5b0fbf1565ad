// Package visiontest provides in-process vision.Model doubles.
package visiontest

import (
	"sync"

	"agrovision/internal/vision"
)

// StaticModel returns the same probability vector for every input and
// records how many times it ran.
type StaticModel struct {
	Probs []float32
	Err   error

	mu    sync.Mutex
	calls int
	last  []float32
}

func (m *StaticModel) Input() vision.InputSpec {
	return vision.DefaultInputSpec
}

func (m *StaticModel) Infer(input []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = input
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]float32(nil), m.Probs...), nil
}

func (m *StaticModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *StaticModel) LastInput() []float32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// OneHot builds a probability vector of length n with p at index i and the
// remainder spread evenly over the other classes.
func OneHot(n, i int, p float32) []float32 {
	probs := make([]float32, n)
	rest := (1 - p) / float32(n-1)
	for j := range probs {
		probs[j] = rest
	}
	probs[i] = p
	return probs
}
