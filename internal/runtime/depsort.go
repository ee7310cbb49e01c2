package runtime

import (
	"github.com/aretw0/semop/pkg/domain"
	"github.com/aretw0/semop/pkg/ports"
)

// SortByDependencies orders handlers so that every handler comes after the
// handlers it depends on. Dependencies naming handlers outside the set are
// ignored. Handlers without pending dependencies keep their relative order.
//
// A cycle yields a *domain.CircularDependencyError listing every handler left
// with unresolved dependencies and how many remain.
func SortByDependencies(handlers []ports.Handler) ([]ports.Handler, error) {
	names := make([]string, len(handlers))
	position := make(map[string]int, len(handlers))
	for i, h := range handlers {
		names[i] = ports.HandlerName(h)
		position[names[i]] = i
	}

	forward := make(map[int][]int)
	incoming := make([]int, len(handlers))
	for i, h := range handlers {
		for _, dep := range ports.DependenciesOf(h) {
			j, ok := position[dep]
			if !ok {
				continue
			}
			forward[j] = append(forward[j], i)
			incoming[i]++
		}
	}

	queue := make([]int, 0, len(handlers))
	for i := range handlers {
		if incoming[i] == 0 {
			queue = append(queue, i)
		}
	}

	sorted := make([]ports.Handler, 0, len(handlers))
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		sorted = append(sorted, handlers[node])
		for _, usedBy := range forward[node] {
			incoming[usedBy]--
			if incoming[usedBy] == 0 {
				queue = append(queue, usedBy)
			}
		}
	}

	if len(sorted) != len(handlers) {
		residual := make(map[string]int)
		for i, count := range incoming {
			if count > 0 {
				residual[names[i]] = count
			}
		}
		return nil, &domain.CircularDependencyError{Residual: residual}
	}
	return sorted, nil
}
