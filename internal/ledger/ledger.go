// Package ledger хранит журнал уведомлений: для каждой пробной подписки день,
// в который по ней последний раз пытались отправить уведомление.
//
// Журнал работает снимками: Begin загружает его один раз за проход планировщика,
// RecordAlert меняет снимок в памяти, Flush сохраняет изменения одной пачкой.
// Ошибки хранилища не фатальны. Если загрузить журнал не удалось, проход
// продолжается с пустым снимком и уведомления будут отправлены повторно:
// лишнее напоминание лучше, чем потерянное.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"github.com/magabrotheeeer/trial-tracker/internal/lib/sl"
)

// Store описывает постоянное хранилище журнала.
type Store interface {
	// Load возвращает все записи журнала: id подписки -> день YYYY-MM-DD.
	Load(ctx context.Context) (map[string]string, error)
	// Save перезаписывает переданные записи, остальные не трогает.
	Save(ctx context.Context, entries map[string]string) error
}

// Ledger снимок журнала на время одного прохода.
type Ledger struct {
	store Store
	log   *slog.Logger

	mu      sync.Mutex
	entries map[string]string
	dirty   map[string]string
}

// New создает журнал поверх хранилища.
func New(store Store, log *slog.Logger) *Ledger {
	return &Ledger{
		store:   store,
		log:     log,
		entries: make(map[string]string),
		dirty:   make(map[string]string),
	}
}

// Begin загружает свежий снимок. При ошибке снимок остается пустым.
func (l *Ledger) Begin(ctx context.Context) {
	entries, err := l.store.Load(ctx)
	if err != nil {
		l.log.Warn("notification history unavailable, treating as empty", sl.Err(err))
		entries = nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[string]string, len(entries))
	maps.Copy(l.entries, entries)
	l.dirty = make(map[string]string)
}

// WasAlertedToday возвращает true, если запись для trialID равна today.
func (l *Ledger) WasAlertedToday(trialID, today string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries[trialID] == today
}

// RecordAlert записывает today для trialID, перезаписывая прежнее значение.
func (l *Ledger) RecordAlert(trialID, today string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[trialID] = today
	l.dirty[trialID] = today
}

// Pending возвращает число несохраненных записей.
func (l *Ledger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.dirty)
}

// Flush сохраняет записи, измененные с момента Begin. Без изменений хранилище не вызывается.
// Ошибка сохранения возвращается для логирования, записи остаются в снимке и
// будут сохранены следующим Flush в рамках того же снимка.
func (l *Ledger) Flush(ctx context.Context) error {
	const op = "ledger.Flush"

	l.mu.Lock()
	if len(l.dirty) == 0 {
		l.mu.Unlock()
		return nil
	}
	batch := maps.Clone(l.dirty)
	l.mu.Unlock()

	if err := l.store.Save(ctx, batch); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	l.mu.Lock()
	for id, saved := range batch {
		if l.dirty[id] == saved {
			delete(l.dirty, id)
		}
	}
	l.mu.Unlock()
	return nil
}

// MemoryStore хранит журнал в памяти процесса.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewMemoryStore создает пустое хранилище в памяти.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]string)}
}

// Load возвращает копию записей.
func (s *MemoryStore) Load(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.entries), nil
}

// Save перезаписывает переданные записи.
func (s *MemoryStore) Save(_ context.Context, entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.entries, entries)
	return nil
}
