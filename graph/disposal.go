package graph

import "time"

// DisposalHandle identifies one pending teardown. Cancel before the grace
// period elapses keeps the resource alive.
type DisposalHandle struct {
	m         *Manager
	due       time.Time
	fire      func()
	cancelled bool
	fired     bool
}

// Cancel withdraws the teardown if it has not fired yet.
func (h *DisposalHandle) Cancel() {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()

	if !h.fired {
		h.cancelled = true
	}
}

// ScheduleDisposal queues a node for teardown after the grace period. The
// queue drains once per render block.
func (m *Manager) ScheduleDisposal(node *Node) *DisposalHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.scheduleNodeLocked(node)
}

// PendingDisposals reports how many teardowns are queued.
func (m *Manager) PendingDisposals() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0

	for _, h := range m.disposals {
		if !h.cancelled && !h.fired {
			n++
		}
	}

	return n
}

// FlushDisposal tears down everything queued immediately, grace period or
// not.
func (m *Manager) FlushDisposal() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flushDisposalLocked()
}

func (m *Manager) scheduleNodeLocked(node *Node) *DisposalHandle {
	return m.scheduleFuncLocked(func() { node.rt.Reset() })
}

func (m *Manager) scheduleFuncLocked(fire func()) *DisposalHandle {
	h := &DisposalHandle{
		m:    m,
		due:  m.now().Add(m.disposalGrace),
		fire: fire,
	}
	m.disposals = append(m.disposals, h)

	return h
}

func (m *Manager) drainDisposalsLocked(now time.Time) {
	if len(m.disposals) == 0 {
		return
	}

	live := m.disposals[:0]

	for _, h := range m.disposals {
		if h.cancelled || h.fired {
			continue
		}

		if now.Before(h.due) {
			live = append(live, h)

			continue
		}

		h.fired = true
		h.fire()
	}

	m.disposals = live
}

func (m *Manager) flushDisposalLocked() {
	for _, h := range m.disposals {
		if h.cancelled || h.fired {
			continue
		}

		h.fired = true
		h.fire()
	}

	m.disposals = nil
}
