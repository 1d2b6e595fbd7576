package document

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Kind tags the shape held by a Node.
type Kind int

const (
	Null Kind = iota
	Scalar
	Sequence
	Mapping
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Sequence:
		return "sequence"
	case Mapping:
		return "mapping"
	default:
		return "null"
	}
}

// Pair is one entry of a mapping node.
type Pair struct {
	Key   string
	Value *Node
}

// Node is a parsed structured document: a mapping, a sequence, a scalar or null.
// Mappings keep their keys in document order.
type Node struct {
	Kind  Kind
	Tag   string // YAML short tag of a scalar, e.g. "!!str" or "!!int"
	Value string // scalar text
	Items []*Node
	Pairs []Pair
}

// NewMapping returns an empty mapping node.
func NewMapping() *Node {
	return &Node{Kind: Mapping}
}

// NewString returns a string scalar.
func NewString(s string) *Node {
	return &Node{Kind: Scalar, Tag: "!!str", Value: s}
}

// ErrAlias is returned for documents whose aliases refer to themselves or
// expand past maxNodes.
var ErrAlias = errors.New("invalid alias")

// maxNodes bounds the nodes built from one document, aliases included.
const maxNodes = 1 << 18

// Parse decodes YAML (or JSON) into a Node tree. Merge keys ("<<") are
// folded into their mapping with explicit keys taking precedence.
func Parse(data []byte) (*Node, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	d := &decoder{active: map[*yaml.Node]bool{}}
	return d.node(&root)
}

type decoder struct {
	active map[*yaml.Node]bool
	count  int
}

func (d *decoder) node(y *yaml.Node) (*Node, error) {
	d.count++
	if d.count > maxNodes {
		return nil, fmt.Errorf("document expands past %d nodes: %w", maxNodes, ErrAlias)
	}

	switch y.Kind {
	case yaml.DocumentNode:
		if len(y.Content) == 0 {
			return &Node{Kind: Null}, nil
		}
		return d.node(y.Content[0])
	case yaml.AliasNode:
		if y.Alias == nil {
			return &Node{Kind: Null}, nil
		}
		if d.active[y.Alias] {
			return nil, fmt.Errorf("anchor %q contains itself: %w", y.Value, ErrAlias)
		}
		return d.node(y.Alias)
	case yaml.ScalarNode:
		tag := y.ShortTag()
		if tag == "!!null" {
			return &Node{Kind: Null}, nil
		}
		return &Node{Kind: Scalar, Tag: tag, Value: y.Value}, nil
	case yaml.SequenceNode:
		d.active[y] = true
		defer delete(d.active, y)

		n := &Node{Kind: Sequence, Items: make([]*Node, 0, len(y.Content))}
		for _, c := range y.Content {
			item, err := d.node(c)
			if err != nil {
				return nil, err
			}
			n.Items = append(n.Items, item)
		}
		return n, nil
	case yaml.MappingNode:
		d.active[y] = true
		defer delete(d.active, y)
		return d.mapping(y)
	default:
		return &Node{Kind: Null}, nil
	}
}

func (d *decoder) mapping(y *yaml.Node) (*Node, error) {
	merged := NewMapping()
	explicit := NewMapping()
	for i := 0; i+1 < len(y.Content); i += 2 {
		key := y.Content[i]
		if key.Kind == yaml.AliasNode && key.Alias != nil {
			key = key.Alias
		}
		value, err := d.node(y.Content[i+1])
		if err != nil {
			return nil, err
		}
		if key.Kind == yaml.ScalarNode && key.ShortTag() == "!!merge" {
			if err := mergeInto(merged, value); err != nil {
				return nil, err
			}
			continue
		}
		explicit.Set(key.Value, value)
	}

	for _, p := range explicit.Pairs {
		merged.Set(p.Key, p.Value)
	}
	return merged, nil
}

// mergeInto applies a merge key value: one mapping, or a sequence of
// mappings where earlier entries win.
func mergeInto(dst, src *Node) error {
	switch src.Kind {
	case Mapping:
		for _, p := range src.Pairs {
			if dst.Get(p.Key) == nil {
				dst.Set(p.Key, p.Value)
			}
		}
		return nil
	case Sequence:
		for _, item := range src.Items {
			if item.Kind != Mapping {
				return errors.New("merge key sequence must contain mappings")
			}
			if err := mergeInto(dst, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.New("merge key value must be a mapping or a sequence of mappings")
	}
}

// FromValue converts a plain Go value into a Node. Map keys are sorted
// because Go maps carry no order.
func FromValue(v any) *Node {
	switch t := v.(type) {
	case nil:
		return &Node{Kind: Null}
	case *Node:
		return t.Clone()
	case string:
		return NewString(t)
	case bool:
		return &Node{Kind: Scalar, Tag: "!!bool", Value: strconv.FormatBool(t)}
	case int:
		return intNode(int64(t))
	case int8:
		return intNode(int64(t))
	case int16:
		return intNode(int64(t))
	case int32:
		return intNode(int64(t))
	case int64:
		return intNode(t)
	case uint:
		return uintNode(uint64(t))
	case uint8:
		return uintNode(uint64(t))
	case uint16:
		return uintNode(uint64(t))
	case uint32:
		return uintNode(uint64(t))
	case uint64:
		return uintNode(t)
	case float32:
		return floatNode(float64(t), 32)
	case float64:
		return floatNode(t, 64)
	case []any:
		n := &Node{Kind: Sequence, Items: make([]*Node, 0, len(t))}
		for _, item := range t {
			n.Items = append(n.Items, FromValue(item))
		}
		return n
	case []string:
		n := &Node{Kind: Sequence, Items: make([]*Node, 0, len(t))}
		for _, item := range t {
			n.Items = append(n.Items, NewString(item))
		}
		return n
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := NewMapping()
		for _, k := range keys {
			n.Set(k, FromValue(t[k]))
		}
		return n
	default:
		return NewString(fmt.Sprint(t))
	}
}

func intNode(i int64) *Node {
	return &Node{Kind: Scalar, Tag: "!!int", Value: strconv.FormatInt(i, 10)}
}

func uintNode(u uint64) *Node {
	return &Node{Kind: Scalar, Tag: "!!int", Value: strconv.FormatUint(u, 10)}
}

func floatNode(f float64, bits int) *Node {
	return &Node{Kind: Scalar, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, bits)}
}

// Any converts the node back into plain Go values. Scalars are decoded
// according to their tag.
func (n *Node) Any() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case Scalar:
		if n.Tag == "" || n.Tag == "!!str" {
			return n.Value
		}
		var v any
		y := &yaml.Node{Kind: yaml.ScalarNode, Tag: n.Tag, Value: n.Value}
		if err := y.Decode(&v); err != nil {
			return n.Value
		}
		return v
	case Sequence:
		out := make([]any, 0, len(n.Items))
		for _, item := range n.Items {
			out = append(out, item.Any())
		}
		return out
	case Mapping:
		out := make(map[string]any, len(n.Pairs))
		for _, p := range n.Pairs {
			out[p.Key] = p.Value.Any()
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{Kind: n.Kind, Tag: n.Tag, Value: n.Value}
	if n.Items != nil {
		c.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			c.Items[i] = item.Clone()
		}
	}
	if n.Pairs != nil {
		c.Pairs = make([]Pair, len(n.Pairs))
		for i, p := range n.Pairs {
			c.Pairs[i] = Pair{Key: p.Key, Value: p.Value.Clone()}
		}
	}
	return c
}

// IsNull reports whether n is absent or an explicit null.
func (n *Node) IsNull() bool {
	return n == nil || n.Kind == Null
}

// IsEmpty reports whether n is null, an empty string, or a collection without entries.
func (n *Node) IsEmpty() bool {
	if n.IsNull() {
		return true
	}
	switch n.Kind {
	case Scalar:
		return n.Value == ""
	case Sequence:
		return len(n.Items) == 0
	case Mapping:
		return len(n.Pairs) == 0
	}
	return true
}

// Text returns the scalar text, or "" for anything else.
func (n *Node) Text() string {
	if n == nil || n.Kind != Scalar {
		return ""
	}
	return n.Value
}

// Inline renders n on a single line: scalars as-is, sequences and
// mappings as comma separated entries.
func (n *Node) Inline() string {
	if n.IsNull() {
		return ""
	}
	switch n.Kind {
	case Sequence:
		parts := make([]string, 0, len(n.Items))
		for _, item := range n.Items {
			if s := item.Inline(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case Mapping:
		parts := make([]string, 0, len(n.Pairs))
		for _, p := range n.Pairs {
			if p.Value.IsNull() {
				continue
			}
			parts = append(parts, p.Key+": "+p.Value.Inline())
		}
		return strings.Join(parts, ", ")
	}
	return n.Value
}

// Get returns the value stored under key, or nil when n is not a mapping
// or the key is absent.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != Mapping {
		return nil
	}
	for _, p := range n.Pairs {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// Lookup follows path through nested mappings.
func (n *Node) Lookup(path ...string) *Node {
	cur := n
	for _, key := range path {
		cur = cur.Get(key)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Keys returns mapping keys in document order.
func (n *Node) Keys() []string {
	if n == nil || n.Kind != Mapping {
		return nil
	}
	keys := make([]string, 0, len(n.Pairs))
	for _, p := range n.Pairs {
		keys = append(keys, p.Key)
	}
	return keys
}

// Set stores v under key, replacing an existing entry in place or
// appending a new one. n must be a mapping.
func (n *Node) Set(key string, v *Node) {
	if v == nil {
		v = &Node{Kind: Null}
	}
	for i, p := range n.Pairs {
		if p.Key == key {
			n.Pairs[i].Value = v
			return
		}
	}
	n.Pairs = append(n.Pairs, Pair{Key: key, Value: v})
}

// SetPath stores v at the nested location named by path, creating
// intermediate mappings and replacing any non-mapping value on the way.
// A non-mapping n is reset to an empty mapping first.
func (n *Node) SetPath(path []string, v *Node) {
	if len(path) == 0 {
		return
	}
	if n.Kind != Mapping {
		*n = Node{Kind: Mapping}
	}
	cur := n
	for _, key := range path[:len(path)-1] {
		child := cur.Get(key)
		if child == nil || child.Kind != Mapping {
			child = NewMapping()
			cur.Set(key, child)
		}
		cur = child
	}
	cur.Set(path[len(path)-1], v)
}
