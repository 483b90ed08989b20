package models

// Declared is a collection of named values that remembers insertion order.
// Iteration follows declaration order, which keeps credential resolution and
// log output deterministic regardless of how the document was decoded.
type Declared[T any] struct {
	keys   []string
	values map[string]T
}

// Set adds or replaces the value for key. Replacing keeps the original position.
func (d *Declared[T]) Set(key string, value T) {
	if d.values == nil {
		d.values = make(map[string]T)
	}
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Get returns the value stored under key.
func (d *Declared[T]) Get(key string) (T, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Len returns the number of entries.
func (d *Declared[T]) Len() int {
	return len(d.keys)
}

// Keys returns a copy of the keys in declaration order.
func (d *Declared[T]) Keys() []string {
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Each calls fn for every entry in declaration order.
func (d *Declared[T]) Each(fn func(key string, value T)) {
	for _, k := range d.keys {
		fn(k, d.values[k])
	}
}
