// Package forcewake keeps hardware power domains awake while the host
// touches registers that live inside them.
package forcewake

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/sarchlab/guclink/mmio"
	"github.com/sarchlab/guclink/timing"
	"gopkg.in/retry.v1"
)

// ErrAckTimeout is returned when a domain does not acknowledge a wake request
// in time.
var ErrAckTimeout = errors.New("forcewake: ack timeout")

const ackBit uint32 = 1 << 0

type domainRegs struct {
	req mmio.Reg
	ack mmio.Reg
}

var regsOf = [numDomains]domainRegs{
	{req: mmio.ForcewakeRender, ack: mmio.ForcewakeAckRnd},
	{req: mmio.ForcewakeBlitter, ack: mmio.ForcewakeAckBlt},
	{req: mmio.ForcewakeMedia, ack: mmio.ForcewakeAckMedia},
}

// Manager counts the users of every domain. A domain is woken when its first
// user arrives and released when its last user leaves.
type Manager struct {
	mu         sync.Mutex
	regs       mmio.RegisterAccess
	clock      timing.Clock
	ackTimeout time.Duration
	log        logr.Logger
	counts     [numDomains]int
}

// Get takes a reference on every domain in the set, waking the ones that were
// asleep. If any domain fails to wake, the references taken so far are
// dropped and the error is returned.
func (m *Manager) Get(domains Domains) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		taken Domains
		err   error
	)

	domains.each(func(d Domains, i int) {
		if err != nil {
			return
		}

		if m.counts[i] == 0 {
			err = m.wake(d, i)
			if err != nil {
				return
			}
		}

		m.counts[i]++
		taken |= d
	})

	if err != nil {
		m.putLocked(taken)
		return err
	}

	return nil
}

// Put drops a reference on every domain in the set.
func (m *Manager) Put(domains Domains) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.putLocked(domains)
}

func (m *Manager) putLocked(domains Domains) {
	domains.each(func(d Domains, i int) {
		if m.counts[i] == 0 {
			panic(fmt.Sprintf("forcewake: put of unheld domain %s", d))
		}

		m.counts[i]--
		if m.counts[i] == 0 {
			m.regs.Write(regsOf[i].req, mmio.MaskedBitDisable(ackBit))
			m.log.V(2).Info("forcewake released", "domain", d)
		}
	})
}

func (m *Manager) wake(d Domains, i int) error {
	m.regs.Write(regsOf[i].req, mmio.MaskedBitEnable(ackBit))

	strategy := retry.LimitTime(m.ackTimeout, retry.Exponential{
		Initial:  2 * time.Microsecond,
		Factor:   2,
		MaxDelay: time.Millisecond,
	})

	for a := retry.Start(strategy, m.clock); a.Next(); {
		if m.regs.Read(regsOf[i].ack)&ackBit != 0 {
			m.log.V(2).Info("forcewake acquired", "domain", d)
			return nil
		}
	}

	m.regs.Write(regsOf[i].req, mmio.MaskedBitDisable(ackBit))
	m.log.Error(ErrAckTimeout, "domain did not wake", "domain", d,
		"timeout", m.ackTimeout)

	return fmt.Errorf("%w: %s", ErrAckTimeout, d)
}

// RefCount returns how many users currently hold the domain.
func (m *Manager) RefCount(d Domains) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	d.each(func(_ Domains, i int) {
		n += m.counts[i]
	})

	return n
}

// Awake returns the set of domains that currently have users.
func (m *Manager) Awake() Domains {
	m.mu.Lock()
	defer m.mu.Unlock()

	var awake Domains
	All.each(func(d Domains, i int) {
		if m.counts[i] > 0 {
			awake |= d
		}
	})

	return awake
}

// A Guard holds a set of domains awake until released.
type Guard struct {
	m       *Manager
	domains Domains
	once    sync.Once
}

// Acquire wakes the domains and returns a guard over them.
func (m *Manager) Acquire(domains Domains) (*Guard, error) {
	if err := m.Get(domains); err != nil {
		return nil, err
	}

	return &Guard{m: m, domains: domains}, nil
}

// Domains returns the domains held by the guard.
func (g *Guard) Domains() Domains {
	return g.domains
}

// Release gives the domains back. Only the first call has an effect.
func (g *Guard) Release() {
	g.once.Do(func() {
		g.m.Put(g.domains)
	})
}
