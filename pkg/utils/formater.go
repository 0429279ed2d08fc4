package utils

import (
	"strconv"
	"strings"
)

var memoryUnits = [...]struct {
	suffix string
	size   uint64
}{
	{"TB", 1 << 40},
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"KB", 1 << 10},
	{"B", 1},
}

// FmtMemory renders a byte count like "1GB 512MB 0KB 0B": the largest
// non-zero unit followed by every smaller one.
func FmtMemory(bytes uint64) string {
	var sb strings.Builder
	for _, u := range memoryUnits {
		n := bytes / u.size
		if n == 0 && sb.Len() == 0 && u.size > 1 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(strconv.FormatUint(n, 10))
		sb.WriteString(u.suffix)
		bytes %= u.size
	}
	return sb.String()
}
