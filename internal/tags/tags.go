// Package tags разбирает строку вида "#tag1 #tag2" в каноническую форму
// хранения "tag1;tag2" и выполняет проверку вхождения тегов.
package tags

import (
	"errors"
	"sort"
	"strings"
)

// Separator разделяет теги в хранимой форме.
const Separator = ";"

// Marker: синтаксический префикс тега во входной строке.
const Marker = "#"

// ErrInvalidTag: непустая строка тегов не начинается с "#".
var ErrInvalidTag = errors.New("tags must start with \"#\" like that: #tag1 #tag2")

// Normalize приводит строку тегов к канонической форме: разбивает по "#"
// и по ";", обрезает пробелы, выкидывает пустые и повторяющиеся теги,
// сортирует и склеивает через ";". Пустой ввод: пустая строка без ошибки.
// Каждый "#" начинает новый тег, так что "#c#sharp" даёт "c;sharp".
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if !strings.HasPrefix(raw, Marker) {
		return "", ErrInvalidTag
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	// ";" внутри тега сломал бы хранимую форму
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '#' || r == ';'
	})
	for _, part := range parts {
		tag := strings.TrimSpace(part)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return strings.Join(out, Separator), nil
}

// Split возвращает список тегов из хранимой формы.
func Split(stored string) []string {
	if stored == "" {
		return []string{}
	}
	parts := strings.Split(stored, Separator)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Format превращает хранимую форму обратно в "#a #b": строку, которую
// Normalize примет и вернёт в исходном виде.
func Format(stored string) string {
	list := Split(stored)
	if len(list) == 0 {
		return ""
	}
	return Marker + strings.Join(list, " "+Marker)
}

// ContainsAll сообщает, содержит ли хранимый набор все теги запроса.
// Пустой запрос подходит под любой набор.
func ContainsAll(stored string, query []string) bool {
	if len(query) == 0 {
		return true
	}
	have := make(map[string]struct{})
	for _, t := range Split(stored) {
		have[t] = struct{}{}
	}
	for _, q := range query {
		if _, ok := have[q]; !ok {
			return false
		}
	}
	return true
}

// ParseQuery разбирает поисковый запрос: либо "#a #b", либо уже
// склеенный "a;b" (так его кладёт в путь страница поиска).
func ParseQuery(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	if strings.HasPrefix(raw, Marker) {
		norm, err := Normalize(raw)
		if err != nil {
			return nil, err
		}
		return Split(norm), nil
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range strings.Split(raw, Separator) {
		p = strings.TrimSpace(p)
		if p == "" || strings.Contains(p, Marker) {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Strings(out)
	return out, nil
}
