package store

import (
	"context"
	"slices"
	"sync"

	"github.com/jmgilman/go/statekit/errors"
)

// Entity is an item with a stable identifier.
type Entity interface {
	EntityID() string
}

// Provider is the data source a Collection loads from and writes to.
type Provider[T Entity] interface {
	FetchAll(ctx context.Context) ([]T, error)
	FetchOne(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, item T) (T, error)
	Update(ctx context.Context, id string, item T) (T, error)
	Remove(ctx context.Context, id string) error
}

// Collection is a feature store for entities backed by a Provider. It adds a
// selected entity to the list held by the embedded Store.
//
// Loads retry on retryable failures; creates, updates and deletes never do.
type Collection[T Entity] struct {
	*Store[T]

	provider Provider[T]

	mu       sync.Mutex
	selected *T
}

// NewCollection creates an empty Collection backed by provider.
func NewCollection[T Entity](provider Provider[T], opts ...Option) *Collection[T] {
	return &Collection[T]{
		Store:    New[T](opts...),
		provider: provider,
	}
}

// Load replaces the items with everything the provider returns.
func (c *Collection[T]) Load(ctx context.Context) error {
	return c.ExecuteActionWithRetry(ctx, c.action("load"), 0, func(ctx context.Context) error {
		items, err := c.provider.FetchAll(ctx)
		if err != nil {
			return err
		}
		c.SetItems(items)
		return nil
	})
}

// LoadOne fetches a single entity and selects it.
func (c *Collection[T]) LoadOne(ctx context.Context, id string) (T, error) {
	ec := c.action("loadOne").With("id", id)
	return ExecuteWithRetry(ctx, c.Store, ec, 0, func(ctx context.Context) (T, error) {
		item, err := c.provider.FetchOne(ctx, id)
		if err != nil {
			return item, err
		}
		c.Select(item)
		return item, nil
	})
}

// Create adds item through the provider and appends the stored result.
func (c *Collection[T]) Create(ctx context.Context, item T) (T, error) {
	return Execute(ctx, c.Store, c.action("create"), func(ctx context.Context) (T, error) {
		created, err := c.provider.Create(ctx, item)
		if err != nil {
			return created, err
		}
		c.UpdateItems(func(items []T) []T {
			return append(items, created)
		})
		return created, nil
	})
}

// Update replaces the entity with the given id. The selection is refreshed
// if that entity is still selected when the provider answers.
func (c *Collection[T]) Update(ctx context.Context, id string, item T) (T, error) {
	ec := c.action("update").With("id", id)
	return Execute(ctx, c.Store, ec, func(ctx context.Context) (T, error) {
		updated, err := c.provider.Update(ctx, id, item)
		if err != nil {
			return updated, err
		}
		c.UpdateItems(func(items []T) []T {
			for i := range items {
				if items[i].EntityID() == id {
					items[i] = updated
				}
			}
			return items
		})
		c.replaceSelected(id, &updated)
		return updated, nil
	})
}

// Delete removes the entity with the given id and clears the selection if
// that entity is still selected when the provider answers.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	ec := c.action("delete").With("id", id)
	return c.ExecuteAction(ctx, ec, func(ctx context.Context) error {
		if err := c.provider.Remove(ctx, id); err != nil {
			return err
		}
		c.UpdateItems(func(items []T) []T {
			return slices.DeleteFunc(items, func(it T) bool {
				return it.EntityID() == id
			})
		})
		c.replaceSelected(id, nil)
		return nil
	})
}

// Select marks item as the selected entity.
func (c *Collection[T]) Select(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = &item
}

// Selected returns the selected entity.
func (c *Collection[T]) Selected() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		var zero T
		return zero, false
	}
	return *c.selected, true
}

// ClearSelection drops the selected entity.
func (c *Collection[T]) ClearSelection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = nil
}

// Filter returns the items for which keep returns true.
func (c *Collection[T]) Filter(keep func(T) bool) []T {
	items := c.Items()
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}

// Find returns the item with the given id.
func (c *Collection[T]) Find(id string) (T, bool) {
	for _, it := range c.Items() {
		if it.EntityID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Reset empties the collection, clears the selection and the error.
func (c *Collection[T]) Reset() {
	c.ClearSelection()
	c.Store.Reset()
}

// replaceSelected swaps the selection for next if the entity with id is
// still the one selected.
func (c *Collection[T]) replaceSelected(id string, next *T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected != nil && (*c.selected).EntityID() == id {
		c.selected = next
	}
}

func (c *Collection[T]) action(name string) errors.ErrorContext {
	return errors.ErrorContext{Component: c.Name(), Action: name}
}
