package lectern

import (
	"context"
	"time"

	"github.com/lecternhq/lectern-go/pkg/jwtx"
)

// renewalDelay computes how long to wait before proactively refreshing a
// token that expires at exp. A zero delay means "renew now"; a negative
// delay means the token is already inside the lead window.
func renewalDelay(exp, now time.Time, lead time.Duration) time.Duration {
	return exp.Sub(now) - lead
}

// scheduleRenewalLocked replaces any pending renewal timer with one matched
// to the current access token. Tokens already inside the lead window (or
// undecodable ones) get no timer; the next EnsureValid call refreshes
// synchronously instead. Caller holds m.mu.
func (m *Manager) scheduleRenewalLocked() {
	m.cancelRenewalLocked()

	exp, err := jwtx.ExpiresAt(m.session.AccessToken)
	if err != nil {
		return
	}

	delay := renewalDelay(exp, m.now(), m.lead)
	if delay < 0 {
		return
	}

	m.renew = time.AfterFunc(delay, m.renewNow)
}

// cancelRenewalLocked stops the pending renewal timer, if any. Caller holds
// m.mu. There is never more than one pending timer per manager.
func (m *Manager) cancelRenewalLocked() {
	if m.renew != nil {
		m.renew.Stop()
		m.renew = nil
	}
}

// renewNow is the renewal timer callback. It runs the same single-flight
// refresh as EnsureValid's slow path: success re-arms the timer for the new
// token, failure tears the session down. If a reactive refresh is already in
// flight the timer yields to it.
func (m *Manager) renewNow() {
	ctx, cancel := context.WithTimeout(context.Background(), m.refreshTimeout)
	defer cancel()

	m.mu.Lock()
	if !m.session.Authenticated || m.inflight != nil || m.session.RefreshToken == "" {
		m.mu.Unlock()
		return
	}

	op := &refreshOp{done: make(chan struct{})}
	m.inflight = op
	token := m.session.RefreshToken
	m.mu.Unlock()

	m.refreshExchange(ctx, token, op)
}
