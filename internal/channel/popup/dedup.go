package popup

import (
	"context"
	"sync"
	"time"
)

// Dedup оборачивает Display и схлопывает уведомления с одинаковым тегом,
// показанные в пределах ttl. Это последний рубеж против дублей, журнал
// уведомлений остается основным механизмом.
type Dedup struct {
	next Display
	ttl  time.Duration
	now  func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time
}

// NewDedup создает обертку со сроком жизни тега ttl.
func NewDedup(next Display, ttl time.Duration) *Dedup {
	return &Dedup{
		next: next,
		ttl:  ttl,
		now:  time.Now,
		seen: make(map[string]time.Time),
	}
}

// Show передает уведомление дальше, если тег не показывался в течение ttl.
func (d *Dedup) Show(ctx context.Context, n Notification) error {
	now := d.now()

	d.mu.Lock()
	for tag, at := range d.seen {
		if now.Sub(at) >= d.ttl {
			delete(d.seen, tag)
		}
	}
	if _, ok := d.seen[n.Tag]; ok {
		d.mu.Unlock()
		return nil
	}
	d.seen[n.Tag] = now
	d.mu.Unlock()

	if err := d.next.Show(ctx, n); err != nil {
		d.mu.Lock()
		delete(d.seen, n.Tag)
		d.mu.Unlock()
		return err
	}
	return nil
}
