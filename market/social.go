package market

import (
	"context"
	"slices"

	"github.com/Sakshi-Saware/BookSwap/kvstore"
)

// Social keeps the friends adjacency in friends_v1. Edges appear when two
// users exchange a request or a first message; there is no accept step.
type Social struct {
	*env
}

// ListFriends returns the distinct counterparts of uid.
func (s *Social) ListFriends(ctx context.Context, uid string) ([]string, error) {
	uid = s.ident.Normalize(uid)
	graph, err := kvstore.Load[map[string][]string](ctx, s.store, keyFriends)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, f := range graph[uid] {
		if f != uid && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}
	return out, nil
}

// link records a symmetric edge between a and b.
func (s *Social) link(ctx context.Context, a, b string) error {
	a, b = s.ident.Normalize(a), s.ident.Normalize(b)
	if a == b {
		return nil
	}
	return kvstore.Update(ctx, s.store, keyFriends, func(graph *map[string][]string) error {
		if *graph == nil {
			*graph = map[string][]string{}
		}
		addEdge(*graph, a, b)
		return nil
	})
}

// Rebuild recomputes the adjacency as the union of what is already stored
// (seeded relations included) and every request and chat counterpart.
func (s *Social) Rebuild(ctx context.Context) error {
	reqs, err := kvstore.Load[[]Request](ctx, s.store, keyRequests)
	if err != nil {
		return err
	}
	chats, err := kvstore.Load[[]Chat](ctx, s.store, keyChats)
	if err != nil {
		return err
	}
	return kvstore.Update(ctx, s.store, keyFriends, func(graph *map[string][]string) error {
		if *graph == nil {
			*graph = map[string][]string{}
		}
		// Seeded entries may be one-sided.
		for a, peers := range *graph {
			for _, b := range peers {
				addEdge(*graph, a, b)
			}
		}
		for _, r := range reqs {
			addEdge(*graph, r.FromUID, r.ToUID)
		}
		for _, c := range chats {
			for i, a := range c.Participants {
				for _, b := range c.Participants[i+1:] {
					addEdge(*graph, a, b)
				}
			}
		}
		return nil
	})
}

func addEdge(graph map[string][]string, a, b string) {
	if a == "" || b == "" || a == b {
		return
	}
	if !slices.Contains(graph[a], b) {
		graph[a] = append(graph[a], b)
	}
	if !slices.Contains(graph[b], a) {
		graph[b] = append(graph[b], a)
	}
}
