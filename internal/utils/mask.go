package utils

const secretMask = "*****"

// MaskSecret keeps a short prefix of long secrets so they can be told apart in logs
func MaskSecret(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) < 12:
		return secretMask
	default:
		return s[:4] + secretMask
	}
}
