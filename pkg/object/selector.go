package object

import "strings"

// SelectorArgc returns the number of arguments selector's name implies,
// following the standard Smalltalk convention the bytecode format leaves
// implicit (spec.md §4.6): a keyword selector ("at:put:") carries one
// argument per colon, a binary operator selector ("+", "==") carries
// exactly one, and a unary selector ("size") carries none. SENDMSG uses
// this to know how many operand-stack slots to consume before dispatch
// ever resolves (or fails to resolve) a method, so the answer cannot
// depend on what, if anything, is found.
func SelectorArgc(selector *Object) int {
	name, _ := selector.Payload.(string)
	return SelectorArgcName(name)
}

// SelectorArgcName is SelectorArgc given the raw selector string.
func SelectorArgcName(name string) int {
	if name == "" {
		return 0
	}
	if n := strings.Count(name, ":"); n > 0 {
		return n
	}
	c := name[0]
	if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		return 0
	}
	return 1
}
