package sqldb

import "fmt"

var PlaceholderPrefixForDBType = map[string]byte{
	"mysql": '?',
	"pgsql": '$',
}

// Placeholder returns the bind placeholder for the 1-based index in the dialect of dbType
func Placeholder(dbType string, index int) string {
	baseChar, ok := PlaceholderPrefixForDBType[dbType]
	if !ok || baseChar == '?' {
		return "?"
	}
	return fmt.Sprintf("%c%d", baseChar, index)
}
