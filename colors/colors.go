package colors

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Orange = color.New(color.FgHiRed).SprintFunc()
)

// Tag formats a log prefix such as "[dispatch]" in the given color
func Tag(paint func(a ...interface{}) string, name string, args ...interface{}) string {
	if len(args) > 0 {
		name = fmt.Sprintf(name, args...)
	}
	return paint("[" + name + "]")
}
