package utils

import (
	"encoding/json"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// NiceInt formats n with digit grouping, e.g. 1234567 -> "1,234,567".
func NiceInt[T constraints.Integer](n T) string {
	return printer.Sprintf("%d", int64(n))
}

func NiceFloat(f float64) string {
	return printer.Sprintf("%.2f", f)
}

// WriteJSON writes v as indented JSON. Map keys come out sorted.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}

func SortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

var digitRun = regexp.MustCompile(`[0-9]+`)

// NaturalLess orders strings with embedded numbers by value, so "chr2" sorts
// before "chr10". Text chunks compare case-insensitively.
func NaturalLess(a, b string) bool {
	ca, cb := naturalChunks(a), naturalChunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		xn, xErr := strconv.Atoi(x)
		yn, yErr := strconv.Atoi(y)
		switch {
		case xErr == nil && yErr == nil:
			if xn != yn {
				return xn < yn
			}
		case xErr == nil:
			return true
		case yErr == nil:
			return false
		default:
			if lx, ly := strings.ToLower(x), strings.ToLower(y); lx != ly {
				return lx < ly
			}
		}
	}
	return len(ca) < len(cb)
}

func NaturalSort(in []string) []string {
	sort.SliceStable(in, func(i, j int) bool { return NaturalLess(in[i], in[j]) })
	return in
}

func naturalChunks(s string) []string {
	var chunks []string
	last := 0
	for _, loc := range digitRun.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			chunks = append(chunks, s[last:loc[0]])
		}
		chunks = append(chunks, s[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(s) {
		chunks = append(chunks, s[last:])
	}
	return chunks
}
