// Package sync реализует клиентский движок синхронизации: push outbox,
// pull изменений по курсору и полный цикл с дедупликацией параллельных запусков.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/iudanet/vaultsync/internal/client/storage"
	"github.com/iudanet/vaultsync/internal/models"
	"github.com/iudanet/vaultsync/internal/validation"
	"github.com/iudanet/vaultsync/internal/wire"
	pkgapi "github.com/iudanet/vaultsync/pkg/api"
)

const (
	// DefaultPushLimit размер push-пакета по умолчанию
	DefaultPushLimit = 100
	// DefaultPullLimit размер страницы pull по умолчанию
	DefaultPullLimit = 200
	// DefaultPushBytes бюджет тела push-запроса, запас оставлен на обертку {"changes":[...]}
	DefaultPushBytes = validation.MaxPushBodySize - 1024
)

// ErrChangesRejected сервер отклонил изменения не из-за конфликта.
// Они остаются в outbox до исправления записи.
var ErrChangesRejected = errors.New("server rejected local changes")

//go:generate moq -out remote_mock.go . RemoteAPI

// RemoteAPI эндпоинты синхронизации сервера
type RemoteAPI interface {
	Push(ctx context.Context, accessToken string, req *pkgapi.PushRequest) (*pkgapi.PushResponse, error)
	Pull(ctx context.Context, accessToken string, cursor int64, limit int) (*pkgapi.PullResponse, error)
}

// Authorizer выполняет запрос с access token и обновляет сессию при 401.
// Реализуется auth.Manager.
type Authorizer interface {
	Do(ctx context.Context, fn func(ctx context.Context, accessToken string) error) error
}

// Store локальное хранилище, с которым работает движок
type Store interface {
	storage.RecordStore
	storage.ChangeLog
	storage.SyncStateStore
}

// PushResult итог одного push
type PushResult struct {
	Batch   int   // прочитано из outbox
	Sent    int   // отправлено на сервер
	Applied int   // принято сервером
	Skipped int   // проиграло конфликт на сервере или исчезло локально
	Cleared int   // снято из outbox
	Seeded  int   // поставлено в outbox первичным заполнением
	Cursor  int64 // курсор после push
	// Invalid id, отклоненные сервером не из-за конфликта; остаются в outbox
	Invalid []string
	// Truncated пакет обрезан по размеру тела, в outbox остались непрочитанные записи
	Truncated bool
}

// PullResult итог одной страницы pull
type PullResult struct {
	Received int
	Applied  int
	Deleted  int
	Skipped  int
	Cursor   int64
	HasMore  bool
}

// Result итог полного цикла синхронизации
type Result struct {
	Pushed   int
	Rejected int
	Invalid  int // изменений, оставшихся в outbox после отказа сервера
	Pulled   int
	Applied  int
	Deleted  int
	Cursor   int64
}

// Changed сообщает, изменил ли цикл локальные данные
func (r *Result) Changed() bool {
	return r.Applied > 0
}

// Event уведомление "синхронизация изменила локальные данные"
type Event struct {
	Applied int
	Deleted int
	Cursor  int64
}

// Engine движок синхронизации
type Engine struct {
	remote    RemoteAPI
	auth      Authorizer
	store     Store
	logger    *slog.Logger
	now       func() time.Time
	group     singleflight.Group
	observers map[int]func(Event)
	nextID    int
	pushLimit int
	pullLimit int
	pushBytes int
	mu        sync.Mutex
}

// Option настраивает Engine
type Option func(*Engine)

// WithBatchSizes задает размеры push-пакета и страницы pull
func WithBatchSizes(push, pull int) Option {
	return func(e *Engine) {
		if push > 0 {
			e.pushLimit = min(push, validation.MaxPushChanges)
		}
		if pull > 0 {
			e.pullLimit = pull
		}
	}
}

// WithPushBytes задает бюджет тела push-запроса в байтах
func WithPushBytes(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.pushBytes = min(n, DefaultPushBytes)
		}
	}
}

// WithNow подменяет часы для отметок времени синхронизации
func WithNow(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine создает движок синхронизации
func NewEngine(remote RemoteAPI, auth Authorizer, store Store, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		remote:    remote,
		auth:      auth,
		store:     store,
		logger:    logger,
		now:       time.Now,
		observers: make(map[int]func(Event)),
		pushLimit: DefaultPushLimit,
		pullLimit: DefaultPullLimit,
		pushBytes: DefaultPushBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Push отправляет до limit записей outbox.
// Если outbox пуст и первичное заполнение еще не выполнялось, все записи ставятся в outbox.
func (e *Engine) Push(ctx context.Context, limit int) (*PushResult, error) {
	if limit <= 0 {
		limit = e.pushLimit
	}
	limit = min(limit, validation.MaxPushChanges)

	items, err := e.store.ListOutbox(ctx, limit)
	if err != nil {
		return nil, err
	}

	res := &PushResult{}
	if len(items) == 0 {
		seeded, err := e.store.SeedOutbox(ctx)
		if err != nil {
			return nil, err
		}
		if seeded > 0 {
			e.logger.InfoContext(ctx, "seeded outbox with existing records", "count", seeded)
			res.Seeded = seeded
			if items, err = e.store.ListOutbox(ctx, limit); err != nil {
				return nil, err
			}
		}
	}
	res.Batch = len(items)

	changes := make([]pkgapi.Change, 0, len(items))
	sent := make([]models.OutboxItem, 0, len(items))
	var vanished []models.OutboxItem
	budget := e.pushBytes
	for _, item := range items {
		var change pkgapi.Change
		queued := item
		if item.Deleted {
			change = wire.ChangeToAPI(models.DeleteChange(item.ID, item.UpdatedAt))
		} else {
			rec, err := e.store.GetRecord(ctx, item.ID)
			if errors.Is(err, storage.ErrRecordNotFound) {
				// запись удалена после постановки в очередь
				vanished = append(vanished, item)
				continue
			}
			if err != nil {
				return nil, err
			}
			change = wire.ChangeToAPI(models.UpsertChange(rec))
			queued = models.OutboxItem{ID: rec.ID, UpdatedAt: rec.UpdatedAt}
		}

		size := validation.EncodedSize(change)
		if len(changes) > 0 && size > budget {
			res.Truncated = true
			break
		}
		budget -= size
		changes = append(changes, change)
		sent = append(sent, queued)
	}
	res.Skipped = len(vanished)

	state, err := e.store.GetSyncState(ctx)
	if err != nil {
		return nil, err
	}
	res.Cursor = state.Cursor

	if len(changes) == 0 {
		if len(vanished) > 0 {
			if res.Cleared, err = e.store.ClearOutbox(ctx, vanished); err != nil {
				return nil, err
			}
		}
		return res, nil
	}

	var resp *pkgapi.PushResponse
	err = e.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
		var err error
		resp, err = e.remote.Push(ctx, accessToken, &pkgapi.PushRequest{Changes: changes})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("push failed: %w", err)
	}

	// проигравшие конфликт изменения снимаются: более новую версию принесет pull.
	// Отклоненные по другой причине остаются в outbox.
	rejected := make(map[string]bool)
	for _, s := range resp.Skipped {
		if s.Reason == pkgapi.SkipReasonStale {
			e.logger.DebugContext(ctx, "server skipped change", "item_id", s.ItemID, "reason", s.Reason)
			res.Skipped++
			continue
		}
		e.logger.WarnContext(ctx, "server rejected change", "item_id", s.ItemID, "reason", s.Reason)
		rejected[s.ItemID] = true
		res.Invalid = append(res.Invalid, s.ItemID)
	}

	done := make([]models.OutboxItem, 0, len(sent)+len(vanished))
	for _, item := range sent {
		if !rejected[item.ID] {
			done = append(done, item)
		}
	}
	done = append(done, vanished...)
	if res.Cleared, err = e.store.ClearOutbox(ctx, done); err != nil {
		return nil, err
	}

	res.Sent = len(changes)
	res.Applied = len(resp.Applied)

	// seq примененных изменений идут подряд и заканчиваются на resp.Cursor.
	// Курсор принимается, только если между ним и локальным курсором нет чужих изменений.
	if resp.Cursor > state.Cursor && resp.Cursor-int64(len(resp.Applied)) <= state.Cursor {
		if _, err := e.store.AdvanceCursor(ctx, resp.Cursor); err != nil {
			return nil, err
		}
		res.Cursor = resp.Cursor
	}

	return res, nil
}

// Pull запрашивает изменения после текущего курсора и применяет их по LWW.
// Вызывающий повторяет Pull, пока HasMore.
func (e *Engine) Pull(ctx context.Context, limit int) (*PullResult, error) {
	if limit <= 0 {
		limit = e.pullLimit
	}

	state, err := e.store.GetSyncState(ctx)
	if err != nil {
		return nil, err
	}

	var resp *pkgapi.PullResponse
	err = e.auth.Do(ctx, func(ctx context.Context, accessToken string) error {
		var err error
		resp, err = e.remote.Pull(ctx, accessToken, state.Cursor, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("pull failed: %w", err)
	}

	res := &PullResult{Received: len(resp.Changes), HasMore: resp.HasMore, Cursor: state.Cursor}
	for _, c := range resp.Changes {
		change := wire.ChangeFromAPI(c)
		if err := change.Validate(); err != nil {
			e.logger.WarnContext(ctx, "skipping invalid remote change", "item_id", change.ItemID, "seq", change.Seq, "error", err)
			res.Skipped++
			continue
		}

		decision, err := e.store.ApplyRemoteChange(ctx, change)
		if err != nil {
			return nil, err
		}
		if !decision.Applied {
			res.Skipped++
			continue
		}
		res.Applied++
		if change.Deleted {
			res.Deleted++
		}
	}

	advanced, err := e.store.AdvanceCursor(ctx, resp.NextCursor)
	if err != nil {
		return nil, err
	}
	if advanced {
		res.Cursor = resp.NextCursor
	}

	return res, nil
}

// RunFullSync выполняет push всего outbox и pull до конца потока.
// Параллельные вызовы ожидают и получают результат уже идущего цикла.
func (e *Engine) RunFullSync(ctx context.Context) (*Result, error) {
	v, err, shared := e.group.Do("sync", func() (any, error) {
		return e.runFullSync(ctx)
	})
	if shared {
		e.logger.DebugContext(ctx, "sync result shared with concurrent callers")
	}
	res, _ := v.(*Result)
	return res, err
}

func (e *Engine) runFullSync(ctx context.Context) (*Result, error) {
	if err := e.store.RecordSyncAttempt(ctx, e.now().UnixMilli()); err != nil {
		return nil, err
	}

	res, err := e.cycle(ctx)
	if err == nil && res.Invalid > 0 {
		err = fmt.Errorf("%w: %d changes stay queued", ErrChangesRejected, res.Invalid)
	}
	if err != nil {
		if recErr := e.store.RecordSyncFailure(ctx, err.Error()); recErr != nil {
			e.logger.ErrorContext(ctx, "failed to record sync failure", "error", recErr)
		}
		e.logger.WarnContext(ctx, "sync failed", "error", err)
		// pull мог изменить данные, даже если часть изменений не принята
		if res != nil && res.Changed() {
			e.notify(Event{Applied: res.Applied, Deleted: res.Deleted, Cursor: res.Cursor})
		}
		return res, err
	}

	if err := e.store.RecordSyncSuccess(ctx, e.now().UnixMilli()); err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "sync completed",
		"pushed", res.Pushed,
		"rejected", res.Rejected,
		"pulled", res.Pulled,
		"applied", res.Applied,
		"cursor", res.Cursor)

	if res.Changed() {
		e.notify(Event{Applied: res.Applied, Deleted: res.Deleted, Cursor: res.Cursor})
	}
	return res, nil
}

func (e *Engine) cycle(ctx context.Context) (*Result, error) {
	res := &Result{}
	invalid := make(map[string]struct{})

	for {
		pr, err := e.Push(ctx, e.pushLimit)
		if err != nil {
			return nil, err
		}
		res.Pushed += pr.Sent
		res.Rejected += pr.Skipped
		res.Cursor = pr.Cursor
		for _, id := range pr.Invalid {
			invalid[id] = struct{}{}
		}
		// неполный и необрезанный пакет означает, что outbox исчерпан;
		// пакет, из которого ничего не снято, повторять бесполезно
		if (pr.Batch < e.pushLimit && !pr.Truncated) || pr.Cleared == 0 {
			break
		}
	}
	res.Invalid = len(invalid)

	for {
		pl, err := e.Pull(ctx, e.pullLimit)
		if err != nil {
			return nil, err
		}
		res.Pulled += pl.Received
		res.Applied += pl.Applied
		res.Deleted += pl.Deleted
		res.Cursor = pl.Cursor
		if !pl.HasMore || pl.Received == 0 {
			break
		}
	}

	return res, nil
}

// Subscribe регистрирует наблюдателя событий синхронизации.
// Наблюдатель вызывается синхронно из RunFullSync. Возвращает функцию отписки.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.observers[id] = fn

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.observers, id)
	}
}

func (e *Engine) notify(ev Event) {
	e.mu.Lock()
	observers := make([]func(Event), 0, len(e.observers))
	for _, fn := range e.observers {
		observers = append(observers, fn)
	}
	e.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
