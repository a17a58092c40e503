package krl

import (
	"strings"
	"unicode/utf8"
)

// Parts is a locator cut into its components. Nothing is validated,
// unescaped or re-escaped: every field is a substring of the input as
// written, so a malformed escape in one part never hides the others.
type Parts struct {
	Scheme   string
	Netloc   string
	Path     string
	Params   string
	Query    string
	Fragment string
}

// schemes whose last path segment may carry ";params".
var paramSchemes = map[string]bool{
	"": true, "ftp": true, "hdl": true, "prospero": true, "http": true,
	"imap": true, "https": true, "shttp": true, "rtsp": true, "rtsps": true,
	"rtspu": true, "sip": true, "sips": true, "mms": true, "sftp": true, "tel": true,
}

// Split cuts rawURL into scheme, netloc, path, params, query and fragment
// following the generic URI layout: "scheme:" then "//netloc" up to the
// first '/', '?' or '#', then the fragment after the first '#' and the
// query after the first '?'. Split never fails.
func Split(rawURL string) Parts {
	s := strings.TrimLeft(rawURL, "\x00\x01\x02\x03\x04\x05\x06\x07\x08\t\n\x0b\x0c\r\x0e\x0f"+
		"\x10\x11\x12\x13\x14\x15\x16\x17\x18\x19\x1a\x1b\x1c\x1d\x1e\x1f ")
	s = strings.NewReplacer("\t", "", "\r", "", "\n", "").Replace(s)

	var p Parts
	if i := strings.IndexByte(s, ':'); i > 0 && isSchemeStart(s[0]) && isScheme(s[:i]) {
		p.Scheme, s = strings.ToLower(s[:i]), s[i+1:]
	}

	if strings.HasPrefix(s, "//") {
		end := len(s)
		if i := strings.IndexAny(s[2:], "/?#"); i >= 0 {
			end = i + 2
		}
		p.Netloc, s = s[2:end], s[end:]
	}

	s, p.Fragment, _ = strings.Cut(s, "#")
	s, p.Query, _ = strings.Cut(s, "?")

	if paramSchemes[p.Scheme] {
		start := strings.LastIndexByte(s, '/') + 1
		if i := strings.IndexByte(s[start:], ';'); i >= 0 {
			s, p.Params = s[:start+i], s[start+i+1:]
		}
	}
	p.Path = s
	return p
}

func isSchemeStart(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func isScheme(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !isSchemeStart(c) && !('0' <= c && c <= '9') && c != '+' && c != '-' && c != '.' {
			return false
		}
	}
	return true
}

// FirstParam returns the first non-blank value for key in a query string.
// Pairs are separated by '&'; a pair without '=' or with an empty value
// counts as absent. Keys and values are unescaped with Unescape.
func FirstParam(query, key string) string {
	for _, pair := range strings.Split(query, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || v == "" {
			continue
		}
		if Unescape(k) != key {
			continue
		}
		if val := Unescape(v); val != "" {
			return val
		}
	}
	return ""
}

// Unescape decodes a form-encoded component leniently: '+' becomes a space,
// valid %XX escapes become bytes, and a '%' not followed by two hex digits
// is kept as is. Invalid UTF-8 in the result is replaced with U+FFFD.
func Unescape(s string) string {
	if !strings.ContainsAny(s, "+%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b.WriteByte(' ')
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		default:
			b.WriteByte(c)
		}
	}

	out := b.String()
	if !utf8.ValidString(out) {
		out = strings.ToValidUTF8(out, "\uFFFD")
	}
	return out
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
