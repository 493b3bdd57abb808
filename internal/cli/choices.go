package cli

import "strings"

// canonicalChoice resolves user input such as "closed-won" or "ready to DISPATCH" to
// the enumeration value it names. Input that names no value comes back unchanged.
func canonicalChoice[T ~string](s string, all []T) (T, bool) {
	key := choiceKey(s)
	if key == "" {
		return T(s), false
	}
	for _, v := range all {
		if choiceKey(string(v)) == key {
			return v, true
		}
	}
	return T(s), false
}

func choiceKey(s string) string {
	s = strings.NewReplacer("-", " ", "_", " ").Replace(strings.TrimSpace(s))
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func choiceNames[T ~string](all []T) []string {
	out := make([]string, len(all))
	for i, v := range all {
		out[i] = string(v)
	}
	return out
}
