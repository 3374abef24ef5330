package descriptor

import "fmt"

// Mode is a bitmask describing how Open treats a file.
type Mode int

const (
	// ModeWorldReadable adds read permission for others on create.
	ModeWorldReadable Mode = 0x00000001
	// ModeWorldWriteable adds write permission for others on create.
	ModeWorldWriteable Mode = 0x00000002
	ModeReadOnly       Mode = 0x10000000
	ModeWriteOnly      Mode = 0x20000000
	ModeReadWrite      Mode = 0x30000000
	ModeCreate         Mode = 0x08000000
	ModeTruncate       Mode = 0x04000000
	ModeAppend         Mode = 0x02000000
)

// ParseMode converts a short mode string ("r", "w", "wt", "wa", "rw",
// "rwt") into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r":
		return ModeReadOnly, nil
	case "w", "wt":
		return ModeWriteOnly | ModeCreate | ModeTruncate, nil
	case "wa":
		return ModeWriteOnly | ModeCreate | ModeAppend, nil
	case "rw":
		return ModeReadWrite | ModeCreate, nil
	case "rwt":
		return ModeReadWrite | ModeCreate | ModeTruncate, nil
	default:
		return 0, fmt.Errorf("descriptor: bad mode %q", s)
	}
}
