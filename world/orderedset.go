package world

// OrderedSet 保持插入顺序、重复插入为空操作的集合，用作每 Tick 的累加器
type OrderedSet[T comparable] struct {
	items []T
	index map[T]int
}

// NewOrderedSet 创建空集合
func NewOrderedSet[T comparable]() *OrderedSet[T] {
	return &OrderedSet[T]{index: make(map[T]int)}
}

// Add 插入元素，已存在时返回 false
func (s *OrderedSet[T]) Add(v T) bool {
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = len(s.items)
	s.items = append(s.items, v)
	return true
}

// Remove 删除元素并保持其余元素顺序
func (s *OrderedSet[T]) Remove(v T) bool {
	i, ok := s.index[v]
	if !ok {
		return false
	}
	copy(s.items[i:], s.items[i+1:])
	var zero T
	s.items[len(s.items)-1] = zero
	s.items = s.items[:len(s.items)-1]
	delete(s.index, v)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j]] = j
	}
	return true
}

func (s *OrderedSet[T]) Has(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *OrderedSet[T]) Len() int { return len(s.items) }

// Items 返回按插入顺序排列的副本，遍历期间修改集合是安全的
func (s *OrderedSet[T]) Items() []T {
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Clear 清空集合，保留底层容量
func (s *OrderedSet[T]) Clear() {
	var zero T
	for i := range s.items {
		s.items[i] = zero
	}
	s.items = s.items[:0]
	clear(s.index)
}
