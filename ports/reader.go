package ports

import (
	"surveyclean/domain/table"
)

// TableReader turns an uploaded survey file into the typed domain table
type TableReader interface {
	ReadTable(filePath string) (*table.Table, error)
}
