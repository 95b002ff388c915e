// Copyright 2020-2024 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package names

import (
	"strings"
	"unicode"
)

// ToUpperCamel converts a snake_case, camelCase, or SCREAMING_SNAKE_CASE
// identifier to UpperCamelCase.
func ToUpperCamel(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, word := range splitWords(s) {
		first := true
		for _, r := range word {
			if first {
				sb.WriteRune(unicode.ToUpper(r))
				first = false
			} else {
				sb.WriteRune(unicode.ToLower(r))
			}
		}
	}
	return sb.String()
}

// ToSnake converts a camelCase or SCREAMING_SNAKE_CASE identifier to
// lower_snake_case.
func ToSnake(s string) string {
	words := splitWords(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// StripEnumPrefix removes the enum type name from an enum value name when
// it is a true prefix. Both arguments are UpperCamelCase. "Foo" is not
// stripped from "Foobar": the rune after the prefix must be uppercase,
// otherwise the original name is returned.
func StripEnumPrefix(prefix, name string) string {
	stripped := strings.TrimPrefix(name, prefix)
	if stripped == name || stripped == "" {
		return name
	}
	if r := []rune(stripped)[0]; !unicode.IsUpper(r) {
		return name
	}
	return stripped
}

// splitWords breaks an identifier into case words. Underscores and other
// non-alphanumeric runes separate words; within an alphanumeric run, a
// word starts at a lower-to-upper transition and at the final upper rune
// of an upper run followed by a lower rune ("XMLHttp" is "XML", "Http").
// Digits never start a word on their own.
func splitWords(s string) []string {
	var words []string
	runes := []rune(s)
	start := -1
	flush := func(end int) {
		if start >= 0 && end > start {
			words = append(words, string(runes[start:end]))
		}
		start = -1
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush(i)
			continue
		}
		if start < 0 {
			start = i
			continue
		}
		prev := runes[i-1]
		switch {
		case unicode.IsUpper(r) && !unicode.IsUpper(prev):
			// lower or digit followed by upper starts a new word.
			flush(i)
			start = i
		case unicode.IsUpper(prev) && unicode.IsUpper(r) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// last upper of an acronym followed by a lower rune starts a
			// new word at the current rune.
			flush(i)
			start = i
		}
	}
	flush(len(runes))
	return words
}
