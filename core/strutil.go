package core

// itoa converts an integer to a string without using fmt package
// This is a lightweight alternative for embedded systems
func itoa(n int) string {
	if n < 0 {
		return "-" + utoa(uint32(-n))
	}
	return utoa(uint32(n))
}

// utoa converts an unsigned integer to a string
func utoa(n uint32) string {
	if n == 0 {
		return "0"
	}

	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}

const hexDigits = "0123456789ABCDEF"

// Hex8 formats a byte as 0xNN
func Hex8(v uint8) string {
	return "0x" + string([]byte{hexDigits[v>>4], hexDigits[v&0x0F]})
}

// Hex32 formats a flash address as 0xNNNNNN (24-bit) or wider when needed
func Hex32(v uint32) string {
	digits := 6
	if v > 0xFFFFFF {
		digits = 8
	}
	buf := make([]byte, digits)
	for i := digits - 1; i >= 0; i-- {
		buf[i] = hexDigits[v&0x0F]
		v >>= 4
	}
	return "0x" + string(buf)
}

// Itoa is the exported form of itoa for other firmware packages
func Itoa(n int) string {
	return itoa(n)
}

// Utoa is the exported form of utoa for other firmware packages
func Utoa(n uint32) string {
	return utoa(n)
}
