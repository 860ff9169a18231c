package bus

import (
	"reflect"

	"github.com/google/uuid"

	"github.com/dkeel/simwire/internal/subject"
)

// Callback receives the arguments passed to Publish.
type Callback func(args ...any)

// Subscription is the handle returned by Subscribe. It identifies
// exactly one registration and is sufficient to remove it later.
type Subscription struct {
	id        string
	tokens    []subject.Token
	cb        Callback
	cancelled bool
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string {
	return s.id
}

// Tokens returns the token path the subscription is registered at.
func (s *Subscription) Tokens() []subject.Token {
	return s.tokens
}

// Subject returns the canonical subject string for the subscription.
func (s *Subscription) Subject() string {
	return subject.Join(s.tokens)
}

// Active reports whether the subscription can still receive
// notifications.
func (s *Subscription) Active() bool {
	return !s.cancelled
}

// node is one trie node. It owns its children exclusively; the trie is
// a tree, never a graph.
type node struct {
	children map[subject.Token]*node
	subs     []*Subscription // insertion order
}

func newNode() *node {
	return &node{children: make(map[subject.Token]*node)}
}

// isEmpty reports whether the node has no children and no
// subscriptions and can be pruned.
func (n *node) isEmpty() bool {
	return len(n.children) == 0 && len(n.subs) == 0
}

// Bus routes published notifications to matching subscribers.
// It is owned by exactly one world and must only be used from that
// world's execution thread.
type Bus struct {
	root *node
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{root: newNode()}
}

// Subscribe registers cb at the node reached by tokens, creating trie
// nodes along the path as needed. The same callback may be registered
// multiple times through multiple Subscribe calls; each call yields an
// independent registration.
func (b *Bus) Subscribe(tokens []subject.Token, cb Callback) *Subscription {
	n := b.root
	for _, tok := range tokens {
		child := n.children[tok]
		if child == nil {
			child = newNode()
			n.children[tok] = child
		}
		n = child
	}

	sub := &Subscription{
		id:     uuid.NewString(),
		tokens: append([]subject.Token(nil), tokens...),
		cb:     cb,
	}
	n.subs = append(n.subs, sub)
	return sub
}

// SubscribeSubject parses a subject string and subscribes to it.
func (b *Bus) SubscribeSubject(s string, cb Callback) *Subscription {
	return b.Subscribe(subject.Parse(s), cb)
}

// pathEntry tracks a node and the token used to reach it, for pruning.
type pathEntry struct {
	node  *node
	token subject.Token
}

// Unsubscribe removes the registration identified by sub. Removing a
// subscription that is absent, already removed, or nil is a no-op.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil || sub.cancelled {
		return
	}
	sub.cancelled = true
	b.removeAt(sub.tokens, func(s *Subscription) bool { return s == sub })
}

// UnsubscribeFunc removes the first registration of cb at the node
// reached by tokens, matching by callback identity. A missing path or
// registration is a no-op.
func (b *Bus) UnsubscribeFunc(tokens []subject.Token, cb Callback) {
	if cb == nil {
		return
	}
	ptr := reflect.ValueOf(cb).Pointer()
	b.removeAt(tokens, func(s *Subscription) bool {
		return reflect.ValueOf(s.cb).Pointer() == ptr
	})
}

// UnsubscribeSubject parses a subject string and removes the first
// registration of cb at its node.
func (b *Bus) UnsubscribeSubject(s string, cb Callback) {
	b.UnsubscribeFunc(subject.Parse(s), cb)
}

// removeAt walks tokens, removes the first subscription matching the
// predicate at the terminal node, and prunes empty nodes back toward
// the root.
func (b *Bus) removeAt(tokens []subject.Token, match func(*Subscription) bool) {
	path := make([]pathEntry, 0, len(tokens)+1)
	path = append(path, pathEntry{node: b.root})

	n := b.root
	for _, tok := range tokens {
		child := n.children[tok]
		if child == nil {
			return
		}
		path = append(path, pathEntry{node: child, token: tok})
		n = child
	}

	found := false
	for i, s := range n.subs {
		if match(s) {
			s.cancelled = true
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return
	}

	for i := len(path) - 1; i > 0; i-- {
		if !path[i].node.isEmpty() {
			break
		}
		delete(path[i-1].node.children, path[i].token)
	}
}

// Publish delivers args to every subscription at the node reached by
// tokens exactly, then to every subscription at the sibling wildcard
// node reached by replacing the final token with "*". Delivery is
// synchronous, in subscription order per node. Publishing where no
// subscriber exists is a no-op.
func (b *Bus) Publish(tokens []subject.Token, args ...any) {
	if len(tokens) == 0 {
		return
	}

	parent := b.walkTo(tokens[:len(tokens)-1])
	if parent == nil {
		return
	}

	final := tokens[len(tokens)-1]

	// Snapshot both subscriber sets before delivering anything, so
	// reentrant mutation from inside a callback cannot skip or corrupt
	// the iteration and additions mid-publish are not delivered.
	var exact, wild []*Subscription
	if n := parent.children[final]; n != nil {
		exact = snapshot(n.subs)
	}
	if final != subject.Wildcard {
		if n := parent.children[subject.Wildcard]; n != nil {
			wild = snapshot(n.subs)
		}
	}

	deliver(exact, args)
	deliver(wild, args)
}

// PublishSubject parses a subject string and publishes to it.
func (b *Bus) PublishSubject(s string, args ...any) {
	b.Publish(subject.Parse(s), args...)
}

// walkTo follows tokens from the root without creating nodes.
// Returns nil if the path does not exist.
func (b *Bus) walkTo(tokens []subject.Token) *node {
	n := b.root
	for _, tok := range tokens {
		n = n.children[tok]
		if n == nil {
			return nil
		}
	}
	return n
}

func snapshot(subs []*Subscription) []*Subscription {
	if len(subs) == 0 {
		return nil
	}
	out := make([]*Subscription, len(subs))
	copy(out, subs)
	return out
}

func deliver(subs []*Subscription, args []any) {
	for _, s := range subs {
		if s.cancelled {
			continue
		}
		s.cb(args...)
	}
}

// Count returns the number of live subscriptions in the trie.
func (b *Bus) Count() int {
	count := 0
	b.countNodes(b.root, &count)
	return count
}

func (b *Bus) countNodes(n *node, count *int) {
	if n == nil {
		return
	}
	*count += len(n.subs)
	for _, child := range n.children {
		b.countNodes(child, count)
	}
}

// NodeCount returns the total number of trie nodes, including the
// root. Useful for verifying pruning.
func (b *Bus) NodeCount() int {
	count := 0
	b.nodeCount(b.root, &count)
	return count
}

func (b *Bus) nodeCount(n *node, count *int) {
	if n == nil {
		return
	}
	*count++
	for _, child := range n.children {
		b.nodeCount(child, count)
	}
}

// Clear removes all subscriptions and nodes.
func (b *Bus) Clear() {
	b.root = newNode()
}
