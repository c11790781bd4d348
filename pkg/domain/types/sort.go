package types

import "github.com/m-mizutani/goerr/v2"

// SortOrder controls result ordering of a content search
type SortOrder string

const (
	SortOrderHot       SortOrder = "hot"
	SortOrderNew       SortOrder = "new"
	SortOrderTop       SortOrder = "top"
	SortOrderRelevance SortOrder = "relevance"
)

func (x SortOrder) String() string {
	return string(x)
}

func (x SortOrder) Validate() error {
	switch x {
	case SortOrderHot, SortOrderNew, SortOrderTop, SortOrderRelevance:
		return nil
	default:
		return goerr.New("invalid sort order", goerr.V("sort_order", string(x)))
	}
}
