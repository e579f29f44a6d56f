package utils

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

const (
	ReturnNumberPrefix     = "RET"
	CreditNoteNumberPrefix = "CN"
)

// NumberGenerator issues unique, roughly time-ordered document numbers such as RET-1830... and CN-1830...
type NumberGenerator struct {
	node *snowflake.Node
}

// NewNumberGenerator creates a generator for one process; node must be unique per instance (0-1023)
func NewNumberGenerator(node int64) (*NumberGenerator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node %d: %w", node, err)
	}
	return &NumberGenerator{node: n}, nil
}

// Next returns prefix-<snowflake id>
func (g *NumberGenerator) Next(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, g.node.Generate().String())
}
