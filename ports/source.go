package ports

import (
	"context"

	"gradelens/domain/core"
)

// RawTable is a source table before typing: a header row and string cells.
// Cells are kept as read, without trimming.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// TableSource yields one tabular dataset.
//
// Identity must change whenever the table's content could have changed and
// stay stable otherwise; the loader caches parsed datasets under it.
type TableSource interface {
	Identity(ctx context.Context) (core.Hash, error)
	ReadTable(ctx context.Context) (*RawTable, error)
}

// UploadStore stages uploaded files for later loading.
type UploadStore interface {
	Store(ctx context.Context, name string, data []byte) (path string, err error)
	Delete(ctx context.Context, path string) error
}
