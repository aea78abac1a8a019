package graph

import (
	"fmt"

	"github.com/MariaGuerraSappho/manos/effect"
)

// AcquireNode hands out a runtime for kind, reusing a pooled one when
// available.
func (m *Manager) AcquireNode(kind effect.Kind) (*Node, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.acquireLocked(kind)
}

// ReleaseNode returns a node to its pool. Beyond the per-kind bound the node
// falls through to disposal instead; that is resource pressure, not an error.
func (m *Manager) ReleaseNode(node *Node) {
	if node == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked(node)
}

// PooledCount reports how many spare nodes of kind are parked.
func (m *Manager) PooledCount(kind effect.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.pool[kind])
}

func (m *Manager) acquireLocked(kind effect.Kind) (*Node, error) {
	spec, ok := effect.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("graph: %w: %d", effect.ErrUnknownKind, int(kind))
	}

	var node *Node

	if spares := m.pool[kind]; len(spares) > 0 {
		node = spares[len(spares)-1]
		m.pool[kind] = spares[:len(spares)-1]
	} else {
		rt, err := m.factory(kind, m.sampleRate)
		if err != nil {
			return nil, fmt.Errorf("graph: acquire %v: %w", kind, err)
		}

		node = &Node{kind: kind, rt: rt}
	}

	node.values = make(map[string]float64, len(spec.Params))

	// Pooled runtimes keep their last settings; restart from the table.
	for _, p := range spec.Params {
		if err := node.rt.SetParam(p.Name, p.Default); err != nil {
			return nil, fmt.Errorf("graph: reset %v.%s: %w", kind, p.Name, err)
		}

		node.values[p.Name] = p.Default
	}

	return node, nil
}

func (m *Manager) releaseLocked(node *Node) {
	node.rt.Reset()
	m.dropRampsLocked(node)

	if len(m.pool[node.kind]) >= poolCapacityPerKind {
		m.log.Printf("graph: pool for %v full, disposing node", node.kind)
		m.scheduleNodeLocked(node)

		return
	}

	m.pool[node.kind] = append(m.pool[node.kind], node)
}
