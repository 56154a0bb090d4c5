package config

import "fmt"

// Collation decides how multiple configuration sources combine.
type Collation int

const (
	// Merge combines languages by name; later sources override individual
	// fields and add extensions.
	Merge Collation = iota
	// Override uses only the highest priority source.
	Override
)

func (c Collation) String() string {
	switch c {
	case Override:
		return "override"
	default:
		return "merge"
	}
}

// Set implements pflag.Value.
func (c *Collation) Set(s string) error {
	switch s {
	case "merge":
		*c = Merge
	case "override":
		*c = Override
	default:
		return fmt.Errorf("unknown collation %q (want merge or override)", s)
	}
	return nil
}

// Type implements pflag.Value.
func (c *Collation) Type() string {
	return "collation"
}
