package set

type Set[T comparable] map[T]struct{}

func SetOf[T comparable](vs ...T) Set[T] {
	s := make(Set[T], len(vs))
	s.Add(vs...)
	return s
}

func (s Set[T]) Add(vs ...T) {
	for _, v := range vs {
		s[v] = struct{}{}
	}
}

func (s Set[T]) Contains(v T) bool {
	_, ok := s[v]
	return ok
}

func (s Set[T]) Len() int {
	return len(s)
}

// Ordered is a set that remembers insertion order, used wherever output must follow declaration
// order rather than map iteration order.
type Ordered[T comparable] struct {
	index Set[T]
	items []T
}

func OrderedOf[T comparable](vs ...T) *Ordered[T] {
	o := &Ordered[T]{index: make(Set[T], len(vs))}
	o.Add(vs...)
	return o
}

// Add appends the values not already present, returning how many were added.
func (o *Ordered[T]) Add(vs ...T) int {
	if o.index == nil {
		o.index = make(Set[T])
	}
	added := 0
	for _, v := range vs {
		if o.index.Contains(v) {
			continue
		}
		o.index.Add(v)
		o.items = append(o.items, v)
		added++
	}
	return added
}

func (o *Ordered[T]) Contains(v T) bool {
	return o.index.Contains(v)
}

func (o *Ordered[T]) Len() int {
	return len(o.items)
}

// ToSlice returns a copy of the items in insertion order.
func (o *Ordered[T]) ToSlice() []T {
	return append([]T(nil), o.items...)
}
