package lib

import "sync"

type IModel interface {
	ID() string
}

// Collection is a typed concurrent map keyed by the item's ID
type Collection[T IModel] struct {
	items sync.Map
}

func NewCollection[T IModel]() *Collection[T] {
	return &Collection[T]{
		items: sync.Map{},
	}
}

func (c *Collection[T]) Load(id string) (item T, ok bool) {
	value, ok := c.items.Load(id)
	if !ok {
		return item, false
	}
	return value.(T), true
}

func (c *Collection[T]) Store(item T) {
	c.items.Store(item.ID(), item)
}

func (c *Collection[T]) LoadOrStore(item T) (actual T, loaded bool) {
	value, loaded := c.items.LoadOrStore(item.ID(), item)
	return value.(T), loaded
}

func (c *Collection[T]) Delete(id string) {
	c.items.Delete(id)
}

func (c *Collection[T]) Range(f func(item T) bool) {
	c.items.Range(func(key, value any) bool {
		return f(value.(T))
	})
}

func (c *Collection[T]) Len() int {
	count := 0
	c.items.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}
