package textile

import (
	"strings"

	"github.com/dlclark/regexp2"
)

// Section is a fixed template section of the issue form: a heading followed by
// placeholder lines the reporter never filled in.
type Section struct {
	Heading string
	Body    []string
}

// Boilerplate lists the template sections removed from every description.
var Boilerplate = []Section{
	{Heading: "Testing Notes", Body: []string{"<!-- How can this change be tested? List steps, accounts and data. -->"}},
	{Heading: "Accessibility IDs", Body: []string{"<!-- List new or changed accessibility identifiers. -->"}},
	{Heading: "Pull Requests", Body: []string{`* "":https://github.com/`}},
	{Heading: "Release Checks", Body: []string{"<!-- What should be verified once this is released? -->"}},
	{Heading: "Stack Trace", Body: []string{"<pre>", "</pre>"}},
	{Heading: "Analysis", Body: []string{"<!-- What is the root cause of the problem? -->"}},
}

// suggestedSolutionPlaceholder is the comment the template puts under the
// "Suggested Solution" heading.
const suggestedSolutionPlaceholder = "<!-- Describe the proposed solution, if any. -->"

// pattern matches the section from its heading through its placeholder body,
// plus one trailing blank line when there is one.
func (s Section) pattern() string {
	var b strings.Builder
	b.WriteString(`^h[1-4]\.[ \t]+`)
	b.WriteString(regexp2.Escape(s.Heading))
	b.WriteString(`[ \t]*\n`)
	for i, line := range s.Body {
		if i > 0 {
			b.WriteString(`[ \t]*\n`)
		}
		b.WriteString(`[ \t]*`)
		b.WriteString(regexp2.Escape(line))
	}
	b.WriteString(`[ \t]*(?:\n(?:[ \t]*\n)?|\z)`)
	return b.String()
}

func stripSections(sections []Section) func(string) string {
	passes := make([]func(string) string, 0, len(sections))
	for _, s := range sections {
		passes = append(passes, replace(s.pattern(), ""))
	}
	return chain(passes...)
}
