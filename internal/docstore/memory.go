package docstore

import (
	"context"
	"sync"
	"time"

	"github.com/Zachkp/portfolio/internal/clock"
	"github.com/Zachkp/portfolio/internal/contact"
)

// Record is a stored document with its assigned timestamp.
type Record struct {
	Collection string
	Document   contact.Document
	CreatedAt  time.Time
}

// Memory keeps documents in process. Used when no database is
// configured and in tests.
type Memory struct {
	clock clock.Clock

	mu      sync.Mutex
	records []Record
}

func NewMemory(clk clock.Clock) *Memory {
	if clk == nil {
		clk = clock.Real()
	}
	return &Memory{clock: clk}
}

func (m *Memory) Create(_ context.Context, collection string, doc contact.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, Record{
		Collection: collection,
		Document:   doc,
		CreatedAt:  m.clock.Now(),
	})
	return nil
}

// Records returns a copy of everything stored.
func (m *Memory) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}
