package domain

import "io"

// Transformer parses one raw source response into Articles and its paging info.
type Transformer interface {
	Transform(reader io.Reader) ([]Article, PageInfo, error)
}
