package query

import "strings"

const upperhex = "0123456789ABCDEF"

// EncodeURI percent-encodes every byte outside the URI character set,
// leaving query syntax (brackets, '&', '=', ',', '.') readable. Spaces and
// non-ASCII text are escaped; an already escaped '%' is escaped again.
func EncodeURI(s string) string {
	return escape(s, keepInURI)
}

// EncodeURIComponent percent-encodes every byte except letters, digits and
// -_.!~*'(). Filter and search values go through it so that '&', '=', '#'
// and '+' inside a value cannot change the shape of the query.
func EncodeURIComponent(s string) string {
	return escape(s, keepInComponent)
}

func escape(s string, keep func(byte) bool) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if keep(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(upperhex[c>>4])
		sb.WriteByte(upperhex[c&15])
	}
	return sb.String()
}

func keepInComponent(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

func keepInURI(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'();/?:@&=+$,#[]", c) >= 0
}
