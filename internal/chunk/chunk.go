package chunk

import (
	"fmt"

	"github.com/desertthunder/decklog/internal/shared"
)

// Chunk is one node of a parse tree.
//
// Leaves carry Fields (nil for opaque leaves); containers carry Children. Raw is the payload
// span the chunk was decoded from and aliases the scanned buffer.
type Chunk struct {
	Tag      string
	Type     Type
	Offset   int
	Raw      []byte
	Fields   Fields
	Children []Chunk
}

// IsContainer reports whether c holds child chunks.
func (c *Chunk) IsContainer() bool {
	return c.Type == Container
}

// last resolves c to the leaf that represents its current state.
func (c *Chunk) last() (*Chunk, error) {
	node := c
	for node.IsContainer() {
		if len(node.Children) == 0 {
			return nil, fmt.Errorf("%w: %q at offset %d", shared.ErrEmptyContainer, node.Tag, node.Offset)
		}
		node = &node.Children[len(node.Children)-1]
	}
	return node, nil
}

// Record returns the decoded fields of c, or of its last descendant leaf when c is a container.
//
// Opaque leaves yield their payload under [TrailingField].
func (c *Chunk) Record() (Fields, error) {
	leaf, err := c.last()
	if err != nil {
		return nil, err
	}
	if leaf.Fields == nil {
		return Fields{TrailingField: leaf.Raw}, nil
	}
	return leaf.Fields, nil
}

// Data returns the raw payload of c, or of its last descendant leaf when c is a container.
func (c *Chunk) Data() ([]byte, error) {
	leaf, err := c.last()
	if err != nil {
		return nil, err
	}
	return leaf.Raw, nil
}

// Walk visits c and its descendants depth first, in order.
func (c *Chunk) Walk(fn func(depth int, c *Chunk)) {
	c.walk(0, fn)
}

func (c *Chunk) walk(depth int, fn func(int, *Chunk)) {
	fn(depth, c)
	for i := range c.Children {
		c.Children[i].walk(depth+1, fn)
	}
}
