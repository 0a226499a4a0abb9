package event

import "strings"

// Entry is one payload key/value pair.
type Entry struct {
	Key   string
	Value string
}

// Payload is an insertion-ordered string map.
//
// Setting an existing key replaces its value in place. The zero value is
// ready to use.
type Payload struct {
	keys   []string
	values map[string]string
}

// NewPayload builds a payload from entries, in order.
func NewPayload(entries ...Entry) Payload {
	var p Payload
	for _, e := range entries {
		p.Set(e.Key, e.Value)
	}
	return p
}

func (p *Payload) Set(key, value string) {
	if p.values == nil {
		p.values = map[string]string{}
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p Payload) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

func (p Payload) Len() int { return len(p.keys) }

// Keys returns the keys in insertion order.
func (p Payload) Keys() []string {
	return append([]string(nil), p.keys...)
}

// Entries returns the pairs in insertion order.
func (p Payload) Entries() []Entry {
	out := make([]Entry, 0, len(p.keys))
	for _, k := range p.keys {
		out = append(out, Entry{Key: k, Value: p.values[k]})
	}
	return out
}

// AddEnviron copies every "NAME=value" variable whose NAME contains one of
// markers. Variables are added in the order given.
func (p *Payload) AddEnviron(environ []string, markers ...string) {
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		for _, m := range markers {
			if strings.Contains(name, m) {
				p.Set(name, value)
				break
			}
		}
	}
}

// AddArgs adds "key=value" tokens, splitting at the first '='.
// Tokens without '=' (or with an empty key) are returned unchanged.
func (p *Payload) AddArgs(args []string) (skipped []string) {
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			skipped = append(skipped, a)
			continue
		}
		p.Set(k, v)
	}
	return skipped
}
