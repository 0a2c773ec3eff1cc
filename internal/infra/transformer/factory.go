package transformer

import (
	"fmt"

	"github.com/chitram/companion/internal/domain"
)

// GetTransformer returns the appropriate transformer by name.
func GetTransformer(name string) (domain.Transformer, error) {
	switch name {
	case RSSName:
		return NewRSSTransformer(), nil
	case NewsJSONName:
		return NewNewsJSONTransformer(), nil
	default:
		return nil, fmt.Errorf("transformer not found: %s", name)
	}
}
