package engine

import "github.com/haolipeng/ipsumdump/pkg/fields"

// tokenizeASCII splits a text record into whitespace-delimited tokens,
// honoring double-quoted spans so that an embedded space inside
// `"..."` doesn't split the token. It does not interpret backslash
// escapes -- that's left to the payload field's own ASCIIParse.
func tokenizeASCII(line string) []string {
	var tokens []string
	i, n := 0, len(line)
	for i < n {
		for i < n && isTokenSpace(line[i]) {
			i++
		}
		if i >= n {
			break
		}
		start := i
		if line[i] == '"' {
			i++
			for i < n {
				if line[i] == '\\' && i+1 < n {
					i += 2
					continue
				}
				if line[i] == '"' {
					i++
					break
				}
				i++
			}
			tokens = append(tokens, line[start:i])
			continue
		}
		for i < n && !isTokenSpace(line[i]) {
			i++
		}
		tokens = append(tokens, line[start:i])
	}
	return tokens
}

func isTokenSpace(b byte) bool { return b == ' ' || b == '\t' }

// sliceBinary walks readers in declared order, slicing exactly as many
// bytes from data as each field's wire class requires. Fixed-width
// classes slice their FixedWidth() directly; BSpecial fields defer to
// the field's own BinaryParse to learn how many bytes to consume. A
// short frame, or a BSpecial parser that fails, truncates the walk:
// that field and every field after it come back nil (absent), and the
// remainder of the frame is discarded, matching the spec's "unknown
// wire class or short frame marks the field absent" rule.
func sliceBinary(data []byte, readers []*fields.FieldReader) [][]byte {
	out := make([][]byte, len(readers))
	cursor := data
	for i, fr := range readers {
		if fr == nil {
			break
		}
		width := fr.Wire.FixedWidth()
		if width >= 0 {
			if len(cursor) < width {
				break
			}
			out[i] = cursor[:width]
			cursor = cursor[width:]
			continue
		}
		if fr.BinaryParse == nil {
			break
		}
		_, consumed, ok := fr.BinaryParse(cursor, nil)
		if !ok || consumed < 0 || consumed > len(cursor) {
			break
		}
		out[i] = cursor[:consumed]
		cursor = cursor[consumed:]
	}
	return out
}
