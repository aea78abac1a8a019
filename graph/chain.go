package graph

import (
	"github.com/MariaGuerraSappho/manos/effect"
)

// RebuildChain recomputes chain membership from current node state. A
// modulated node is wired while its mapped wet level exceeds the audibility
// threshold; a fixed utility node while any setting differs from its default;
// trim and compressor are always wired. Unchanged membership keeps the exact
// node sequence.
func (m *Manager) RebuildChain() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rebuildLocked()
}

func (m *Manager) rebuildLocked() {
	if !m.initialized {
		return
	}

	next := make([]*Node, 0, len(m.nodes))

	for _, kind := range effect.Kinds() {
		if kind == effect.Volume {
			continue
		}

		node, ok := m.nodes[kind]
		if !ok || !m.memberLocked(node) {
			continue
		}

		next = append(next, node)
	}

	m.chain = next
}

func (m *Manager) memberLocked(node *Node) bool {
	switch node.kind {
	case effect.Trim, effect.Compressor:
		return true
	}

	spec, ok := effect.Lookup(node.kind)
	if !ok {
		return false
	}

	if spec.IsFixedUtility() {
		for _, p := range spec.Params {
			if v, ok := node.values[p.Name]; ok && v != p.Default {
				return true
			}
		}

		return false
	}

	return m.mappedWet[node.kind] > wetEpsilon
}

// ClearEffects drops every modulated node back to the pool, leaving the
// utility scaffolding in place. Used when a fresh mapping set replaces the
// previous one wholesale.
func (m *Manager) ClearEffects() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return
	}

	for kind, node := range m.nodes {
		spec, ok := effect.Lookup(kind)
		if !ok || spec.Category != effect.CategoryModulated {
			continue
		}

		delete(m.nodes, kind)
		delete(m.mappedWet, kind)
		m.releaseLocked(node)
	}

	m.rebuildLocked()
}
