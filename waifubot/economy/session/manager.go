package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/waifu-bot/waifubot/waifu"
)

// CooldownError is returned while a user's draw cooldown is running. It matches waifu.ErrBusy.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("on cooldown for another %s", e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error {
	return waifu.ErrBusy
}

type lease struct {
	acquired time.Time
}

// Manager hands out at most one in-flight request lease per user and tracks draw cooldowns.
type Manager struct {
	active    sync.Map // userID -> *lease
	cooldowns sync.Map // userID -> time.Time

	cooldownPeriod time.Duration
	leaseTimeout   time.Duration
	now            func() time.Time
}

func NewManager(cooldownPeriod time.Duration) *Manager {
	return &Manager{
		cooldownPeriod: cooldownPeriod,
		leaseTimeout:   2 * time.Minute,
		now:            time.Now,
	}
}

// Acquire claims the user's lease. The returned release func is idempotent and must be
// deferred by the caller; a second Acquire before release fails with waifu.ErrBusy.
func (m *Manager) Acquire(userID string) (func(), error) {
	l := &lease{acquired: m.now()}
	if _, loaded := m.active.LoadOrStore(userID, l); loaded {
		return func() {}, fmt.Errorf("%w: %s", waifu.ErrBusy, userID)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// a lease reaped by cleanup may already have been replaced by a newer one
			m.active.CompareAndDelete(userID, l)
		})
	}, nil
}

func (m *Manager) IsActive(userID string) bool {
	_, ok := m.active.Load(userID)
	return ok
}

// CheckCooldown returns a *CooldownError if the user may not draw yet.
func (m *Manager) CheckCooldown(userID string) error {
	if v, ok := m.cooldowns.Load(userID); ok {
		until := v.(time.Time)
		if now := m.now(); now.Before(until) {
			return &CooldownError{Remaining: until.Sub(now)}
		}
	}
	return nil
}

// StartCooldown begins the user's cooldown. It does nothing when cooldowns are disabled.
func (m *Manager) StartCooldown(userID string) {
	if m.cooldownPeriod <= 0 {
		return
	}
	m.cooldowns.Store(userID, m.now().Add(m.cooldownPeriod))
}

func (m *Manager) cleanupExpired() {
	now := m.now()

	m.active.Range(func(key, value interface{}) bool {
		l := value.(*lease)
		if now.Sub(l.acquired) > m.leaseTimeout {
			m.active.CompareAndDelete(key, l)
		}
		return true
	})

	m.cooldowns.Range(func(key, value interface{}) bool {
		if now.After(value.(time.Time)) {
			m.cooldowns.Delete(key)
		}
		return true
	})
}

// StartCleanupRoutine reaps abandoned leases and elapsed cooldowns until ctx is done.
func (m *Manager) StartCleanupRoutine(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.cleanupExpired()
			}
		}
	}()
}
