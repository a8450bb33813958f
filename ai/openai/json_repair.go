// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import "strings"

// repairJSON fixes the defects small models produce most often: keys
// missing their opening quote (`{name": "x"}`) and trailing commas before
// a closing bracket. String literals are copied untouched.
func repairJSON(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 16)

	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			b.WriteByte(ch)
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
			b.WriteByte(ch)
		case '{', ',':
			if ch == ',' {
				if next := nextNonSpace(s, i+1); next == '}' || next == ']' {
					continue
				}
			}
			b.WriteByte(ch)
			j := i + 1
			for j < len(s) && isSpace(s[j]) {
				b.WriteByte(s[j])
				j++
			}
			if end := bareKeyEnd(s, j); end > 0 {
				b.WriteByte('"')
				b.WriteString(s[j : end+1])
				i = end
				continue
			}
			i = j - 1
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// bareKeyEnd returns the index of the closing quote when s[start:] looks
// like `key":`, or -1.
func bareKeyEnd(s string, start int) int {
	k := start
	for k < len(s) && (isLetter(s[k]) || s[k] == '_') {
		k++
	}
	if k == start || k+1 >= len(s) || s[k] != '"' || s[k+1] != ':' {
		return -1
	}
	return k
}

func nextNonSpace(s string, from int) byte {
	for i := from; i < len(s); i++ {
		if !isSpace(s[i]) {
			return s[i]
		}
	}
	return 0
}
