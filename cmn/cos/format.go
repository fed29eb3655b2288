package cos

import "fmt"

// Plural returns "s" when n != 1, for simple English pluralization in
// log/error messages ("1 error" vs "3 errors").
func Plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
)

// ToSizeIEC renders n bytes using binary (IEC) units, e.g. "4.00MiB".
func ToSizeIEC(n int64, digits int) string {
	switch {
	case n >= GiB:
		return fmt.Sprintf("%.*fGiB", digits, float64(n)/GiB)
	case n >= MiB:
		return fmt.Sprintf("%.*fMiB", digits, float64(n)/MiB)
	case n >= KiB:
		return fmt.Sprintf("%.*fKiB", digits, float64(n)/KiB)
	default:
		return fmt.Sprintf("%dB", n)
	}
}
