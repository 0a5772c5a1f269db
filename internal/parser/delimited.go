package parser

import (
	"github.com/KaramelBytes/datahub-cli/internal/table"
)

type delimitedFormat struct{}

func (delimitedFormat) CanParse(filename string) bool {
	return hasExt(filename, ".csv", ".tsv", ".txt")
}

func (delimitedFormat) Parse(content []byte, opt table.Options) (table.Table, error) {
	return table.Parse(table.Decode(content), opt), nil
}
