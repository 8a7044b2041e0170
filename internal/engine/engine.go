package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bradboard/internal/domain"
	"bradboard/internal/events"
	"bradboard/internal/repo"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
	Logger *zap.Logger
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{},
		Now:    time.Now,
		Logger: zap.NewNop(),
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(domain.TimeLayout)
}

func (e Engine) log() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// InTx runs fn with an Engine bound to a single transaction. Calls made from
// inside fn reuse that transaction, so fn commits or rolls back as a unit.
func (e Engine) InTx(ctx context.Context, fn func(Engine) error) error {
	if e.Repo.Tx != nil {
		return fn(e)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()
	inner := e
	inner.Repo = e.Repo.WithTx(tx)
	inner.Events.Now = e.now
	if err := fn(inner); err != nil {
		return err
	}
	return tx.Commit()
}

// appendEvent writes an event inside the transaction bound by InTx.
func (e Engine) appendEvent(ctx context.Context, evtType, projectID, entityKind, entityID string, actor domain.Actor, payload events.EventPayload) error {
	if e.Repo.Tx == nil {
		return errors.New("event append outside transaction")
	}
	return e.Events.Append(ctx, e.Repo.Tx, evtType, projectID, entityKind, entityID, actor.ID, payload)
}

func validateActor(actor domain.Actor) error {
	if strings.TrimSpace(actor.ID) == "" {
		return ValidationError{Field: "actor", Reason: "is required"}
	}
	return nil
}

func actorName(actor domain.Actor) string {
	if n := strings.TrimSpace(actor.Name); n != "" {
		return n
	}
	return actor.ID
}

// requireText trims v and rejects empty values.
func requireText(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ValidationError{Field: field, Reason: "is required"}
	}
	return v, nil
}

// ValidatePage checks page/size bounds and applies the default size.
func ValidatePage(page, size int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if size == 0 {
		size = DefaultPageSize
	}
	if page < 1 {
		return 0, 0, ValidationError{Field: "page", Reason: "must be >= 1"}
	}
	if size < 1 || size > MaxPageSize {
		return 0, 0, ValidationError{Field: "size", Reason: fmt.Sprintf("must be between 1 and %d", MaxPageSize)}
	}
	return page, size, nil
}

func newID() string {
	return uuid.NewString()
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
