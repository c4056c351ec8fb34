package matching

// defaultRoleKeywords is the built-in political/role keyword set used for
// occupation corroboration. Deployments extend it through configuration
// (e.g. sector-specific executive titles).
var defaultRoleKeywords = []string{
	"minister",
	"senator",
	"ambassador",
	"governor",
	"mayor",
	"judge",
	"general",
	"admiral",
	"president",
	"prime",
	"deputy",
	"chairman",
	"ceo",
	"director",
}

// keywordSet merges the defaults with configured extras into a folded lookup
// set.
func keywordSet(extra []string) map[string]struct{} {
	set := make(map[string]struct{}, len(defaultRoleKeywords)+len(extra))
	for _, k := range defaultRoleKeywords {
		set[Fold(k)] = struct{}{}
	}
	for _, k := range extra {
		if folded := Fold(k); folded != "" {
			set[folded] = struct{}{}
		}
	}
	return set
}
