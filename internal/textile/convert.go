// Package textile converts Redmine Textile markup into the Markdown dialect
// understood by ClickUp task descriptions.
//
// Conversion is a fixed, ordered list of pattern rewrites over the whole text.
// Later passes rely on earlier ones, so the order of passes is significant.
package textile

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// defaultMark tags the lines written by the heading pass so the numbered list
// pass never reads a converted heading as a list item. The last pass drops it.
// Input that already contains it gets a private-use rune it does not contain.
const defaultMark = "\uE000"

// Pass is one named rewrite step.
type Pass struct {
	Name  string
	Apply func(string) string
}

var passes = newPasses(defaultMark)

func newPasses(mark string) []Pass {
	return []Pass{
		{"collapse blank lines", replace(`\r?\n(?:[ \t]*\r?\n)*`, "\n")},
		{"strip boilerplate sections", stripSections(Boilerplate)},
		{"headings", replaceFunc(`^h([1-4])\.[ \t]+`, func(m regexp2.Match) string {
			level := int(m.GroupByNumber(1).String()[0] - '0')
			return mark + strings.Repeat("#", level) + " "
		})},
		{"heading spacing", replace(`^(`+mark+`?#{1,4} .*)\n(?:[ \t]*\n)+`, "$1\n")},
		{"bold", replace(`(?<![*\w])\*(?![\s*])([^*\n]+?)(?<![\s*])\*(?![*\w])`, "**$1**")},
		{"italics", replace(`(?<![\w/|])_(?![\s_])([^_\n]+?)(?<![\s_])_(?![\w/])`, "*$1*")},
		{"bullet lists", chain(
			replace(`^\*\*[ \t]+`, "  - "),
			replace(`^\*[ \t]+`, "- "),
		)},
		{"numbered lists", chain(
			replace(`^##[ \t]+`, "  1. "),
			replace(`^#[ \t]+`, "1. "),
		)},
		{"numbered list spacing", replace(`^([ \t]*1\. .*)\n(?:[ \t]*\n)+(?=[ \t]*1\. )`, "$1\n")},
		{"blockquotes", replace(`^bq\.[ \t]+`, "> ")},
		{"code blocks", chain(
			replace(`<pre>(?:[ \t]*<code(?:[ \t]+class="[^"\n]*")?>)?`, "```"),
			replace(`(?:</code>[ \t]*)?</pre>`, "```"),
		)},
		{"inline code", replace(`(?<![\w@])@(?![\s@])([^@\n]+?)(?<!\s)@(?![\w@])`, "`$1`")},
		{"tables", chain(
			replaceFunc(`^\|\|.*`, func(m regexp2.Match) string {
				return strings.ReplaceAll(m.String(), "||", "|")
			}),
			replace(`\|_\.[ \t]*`, "|"),
		)},
		{"links", replace(`"([^"\n]+)":(https?://[^\s<>"]*[^\s<>".,;:!?)\]])`, "[$1]($2)")},
		{"collapsible sections", chain(
			replace(`\{\{collapse\(([^)\n]*)\)[ \t]*`, "> **$1**\n"),
			replace(`\}\}`, "\n"),
		)},
		{"suggested solution placeholder", replace(
			`^(`+mark+`?#{1,4}[ \t]+Suggested Solution)[ \t]*\n[ \t]*`+
				regexp2.Escape(suggestedSolutionPlaceholder)+`[ \t]*(?:\n|\z)`, "$1\n")},
		{"trim", func(s string) string {
			return strings.TrimSpace(strings.ReplaceAll(s, mark, ""))
		}},
	}
}

// Convert rewrites Textile text as Markdown. It never fails: a pass that
// finds nothing to rewrite returns its input unchanged.
func Convert(text string) string {
	return Trace(text, func(string, string) {})
}

// Trace runs the same passes as Convert and calls fn with the name of every
// pass that changed the text and the text it produced.
func Trace(text string, fn func(pass, result string)) string {
	if text == "" {
		return ""
	}
	mark, ps := defaultMark, passes
	if strings.Contains(text, mark) {
		mark = unusedMark(text)
		ps = newPasses(mark)
	}
	for _, p := range ps {
		next := p.Apply(text)
		if next != text {
			fn(p.Name, strings.ReplaceAll(next, mark, ""))
		}
		text = next
	}
	return text
}

// Passes returns the conversion passes in the order Convert applies them.
func Passes() []Pass {
	return append([]Pass(nil), passes...)
}

// unusedMark returns a private-use rune that does not occur in text.
func unusedMark(text string) string {
	for _, block := range [][2]rune{{0xE001, 0xF8FF}, {0xF0000, 0xFFFFD}, {0x100000, 0x10FFFD}} {
		for r := block[0]; r <= block[1]; r++ {
			if !strings.ContainsRune(text, r) {
				return string(r)
			}
		}
	}
	return defaultMark
}

func replace(pattern, replacement string) func(string) string {
	re := regexp2.MustCompile(pattern, regexp2.Multiline)
	return func(s string) string {
		out, err := re.Replace(s, replacement, -1, -1)
		if err != nil {
			return s
		}
		return out
	}
}

func replaceFunc(pattern string, fn regexp2.MatchEvaluator) func(string) string {
	re := regexp2.MustCompile(pattern, regexp2.Multiline)
	return func(s string) string {
		out, err := re.ReplaceFunc(s, fn, -1, -1)
		if err != nil {
			return s
		}
		return out
	}
}

func chain(fns ...func(string) string) func(string) string {
	return func(s string) string {
		for _, fn := range fns {
			s = fn(s)
		}
		return s
	}
}
