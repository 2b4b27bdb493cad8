package matcher

import (
	"fmt"

	"eolmatch/pkg/reference"
)

// LoadInputs reads the first column of the input workbook. Order and
// duplicates are kept; blank cells are dropped.
func LoadInputs(path string) ([]string, error) {
	inputs, err := reference.ReadColumn(path)
	if err != nil {
		return nil, fmt.Errorf("load user input: %w", err)
	}
	return inputs, nil
}
