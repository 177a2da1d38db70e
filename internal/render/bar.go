// Package render draws textual progress bars and hosts the polling console
// monitor that repaints them until a tracker completes.
package render

import (
	"fmt"
	"strings"

	"github.com/kelvinho/progressd/internal/progress"
)

// DefaultWidth is the bar width used when a caller does not specify one.
const DefaultWidth = 30

const (
	fullSymbol  = '#'
	emptySymbol = '-'
)

// Bar renders an absolute progress value as "[###---]". Column i of the
// width-2 interior columns is filled iff i/(width-2) < value. Width must leave
// room for the interior between the bracket characters.
func Bar(value float64, width int) (string, error) {
	if width <= 2 {
		return "", fmt.Errorf("%w: bar width %d must exceed 2 to fit the brackets", progress.ErrInvalidArgument, width)
	}
	columns := width - 2
	var b strings.Builder
	b.Grow(width)
	b.WriteByte('[')
	for i := 0; i < columns; i++ {
		if float64(i)/float64(columns) < value {
			b.WriteByte(fullSymbol)
		} else {
			b.WriteByte(emptySymbol)
		}
	}
	b.WriteByte(']')
	return b.String(), nil
}
