// Package ring provides the bounded FIFO used for every rolling history in
// the pipeline: samples, peaks, RR intervals, templates, beats and burden points.
package ring

// Buffer is a fixed-capacity FIFO. Pushing onto a full buffer evicts the
// oldest element, so Len never exceeds Cap.
type Buffer[T any] struct {
	items []T
	head  int
	size  int
}

// New returns an empty buffer holding at most capacity elements.
// A capacity below one is raised to one.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{items: make([]T, capacity)}
}

func (b *Buffer[T]) Len() int { return b.size }

func (b *Buffer[T]) Cap() int { return len(b.items) }

// Push appends v. When the buffer was full the evicted element is returned
// with ok set.
func (b *Buffer[T]) Push(v T) (evicted T, ok bool) {
	if b.size == len(b.items) {
		evicted = b.items[b.head]
		b.items[b.head] = v
		b.head = (b.head + 1) % len(b.items)
		return evicted, true
	}
	b.items[(b.head+b.size)%len(b.items)] = v
	b.size++
	return evicted, false
}

// At returns the i-th element counting from the oldest. It panics when i is
// out of range, like slice indexing.
func (b *Buffer[T]) At(i int) T {
	if i < 0 || i >= b.size {
		panic("ring: index out of range")
	}
	return b.items[(b.head+i)%len(b.items)]
}

// Last returns the newest element.
func (b *Buffer[T]) Last() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	return b.At(b.size - 1), true
}

// PopFront removes and returns the oldest element.
func (b *Buffer[T]) PopFront() (T, bool) {
	var zero T
	if b.size == 0 {
		return zero, false
	}
	v := b.items[b.head]
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.size--
	return v, true
}

// DropWhile pops elements from the front while drop reports true and returns
// how many were removed.
func (b *Buffer[T]) DropWhile(drop func(T) bool) int {
	n := 0
	for b.size > 0 && drop(b.items[b.head]) {
		b.PopFront()
		n++
	}
	return n
}

// AppendTo appends the contents, oldest first, to dst.
func (b *Buffer[T]) AppendTo(dst []T) []T {
	for i := 0; i < b.size; i++ {
		dst = append(dst, b.items[(b.head+i)%len(b.items)])
	}
	return dst
}

// Slice returns a copy of the contents, oldest first.
func (b *Buffer[T]) Slice() []T {
	return b.AppendTo(make([]T, 0, b.size))
}

// Reset empties the buffer, keeping its capacity.
func (b *Buffer[T]) Reset() {
	var zero T
	for i := range b.items {
		b.items[i] = zero
	}
	b.head = 0
	b.size = 0
}
