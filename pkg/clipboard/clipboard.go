package clipboard

import (
	"strings"

	"github.com/atotto/clipboard"
)

func Copy(text string) error {
	return clipboard.WriteAll(text)
}

func Paste() (string, error) {
	return clipboard.ReadAll()
}

// CopyTables copies table references, one per line, in the backtick-quoted
// form a SQL editor accepts.
func CopyTables(refs ...string) error {
	return Copy(FormatTables(refs...))
}

func FormatTables(refs ...string) string {
	quoted := make([]string, len(refs))
	for i, r := range refs {
		quoted[i] = "`" + r + "`"
	}
	return strings.Join(quoted, "\n")
}
