package state

import (
	"context"
	"mindmeld/internal/logger"
	"mindmeld/internal/repository/db"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// saveTimeout bounds a single background save
const saveTimeout = 10 * time.Second

// persister coalesces snapshot writes: every schedule replaces the pending
// snapshot and restarts the delay, so a burst of mutations costs one save.
type persister struct {
	store db.Store
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	pending *db.Snapshot
	seq     uint64

	// saveMu serializes writes; savedSeq drops snapshots older than the last write
	saveMu   sync.Mutex
	savedSeq uint64
}

func newPersister(store db.Store, delay time.Duration) *persister {
	return &persister{store: store, delay: delay}
}

// schedule queues snap for a write after the debounce delay
func (p *persister) schedule(snap *db.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.seq++
	p.pending = snap

	if p.timer != nil {
		p.timer.Stop()
	}
	p.timer = time.AfterFunc(p.delay, p.fire)
}

func (p *persister) fire() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := p.flush(ctx); err != nil {
		logger.Log.WithError(err).Warn("Failed to persist state, continuing in memory")
	}
}

// flush writes the pending snapshot now, if any
func (p *persister) flush(ctx context.Context) error {
	p.mu.Lock()
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	snap, seq := p.pending, p.seq
	p.pending = nil
	p.mu.Unlock()

	if snap == nil {
		return nil
	}

	p.saveMu.Lock()
	defer p.saveMu.Unlock()

	if seq <= p.savedSeq {
		return nil
	}
	if err := p.store.Save(ctx, snap); err != nil {
		return err
	}
	p.savedSeq = seq

	logger.Log.WithFields(logrus.Fields{
		"seq":           seq,
		"conversations": len(snap.Conversations),
	}).Debug("Persisted state")
	return nil
}
