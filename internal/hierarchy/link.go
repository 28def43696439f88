package hierarchy

import "strings"

// compoundKinds are the page prefixes Doxygen uses for entries that can
// appear in a class hierarchy.
var compoundKinds = []string{"class", "struct", "union", "interface", "protocol", "exception"}

// escapes maps characters to the replacements Doxygen uses when turning a
// qualified name into a file name.
var escapes = map[byte]string{
	'_':  "__",
	':':  "_1",
	'/':  "_2",
	'<':  "_3",
	'>':  "_4",
	'*':  "_5",
	'&':  "_6",
	'|':  "_7",
	'.':  "_8",
	'!':  "_9",
	',':  "_00",
	' ':  "_01",
	'{':  "_02",
	'}':  "_03",
	'?':  "_04",
	'^':  "_05",
	'%':  "_06",
	'(':  "_07",
	')':  "_08",
	'+':  "_09",
	'=':  "_0a",
	'$':  "_0b",
	'\\': "_0c",
	'@':  "_0d",
	']':  "_0e",
	'[':  "_0f",
	'#':  "_0g",
	'"':  "_0h",
	'~':  "_0i",
	'\'': "_0j",
	';':  "_0k",
	'`':  "_0l",
}

// EscapeName converts a display name into the file name stem Doxygen
// derives from it. Dots in the display name are scope separators and are
// treated like "::".
func EscapeName(name string) string {
	name = strings.ReplaceAll(name, ".", "::")
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if r, ok := escapes[name[i]]; ok {
			b.WriteString(r)
			continue
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

// LinkFor returns the page Doxygen writes for a class called name.
func LinkFor(name string) string {
	return "class" + EscapeName(name) + ".html"
}

// LinkMatches reports whether link is the page Doxygen would generate for
// name under any of the compound kinds.
func LinkMatches(name, link string) bool {
	stem, ok := strings.CutSuffix(link, ".html")
	if !ok {
		return false
	}
	want := EscapeName(name)
	for _, kind := range compoundKinds {
		if rest, ok := strings.CutPrefix(stem, kind); ok && rest == want {
			return true
		}
	}
	return false
}
