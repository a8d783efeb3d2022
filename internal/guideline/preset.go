package guideline

// Built-in presets. The table is fixed data: user documents reference
// presets through "builtin:<name>" includes but cannot edit them.

var securityPreset = []Guideline{
	{Prefix: "security", Label: "sql-injection", Description: "All SQL queries must use parameterized binding. Never interpolate user input into query strings."},
	{Prefix: "security", Label: "xss-prevention", Description: "User-supplied content rendered into HTML must be escaped or sanitized before output."},
	{Prefix: "security", Label: "secrets-management", Description: "No hardcoded credentials, API keys, tokens, or private keys in source code. Secrets must come from the environment or a secret store."},
	{Prefix: "security", Label: "input-validation", Description: "Validate and bound all external input (request parameters, file contents, environment) before use."},
	{Prefix: "security", Label: "unsafe-deserialization", Description: "Do not deserialize untrusted data with formats that can execute code or allocate unbounded memory."},
}

var readabilityPreset = []Guideline{
	{Prefix: "readability", Label: "function-length", Description: "Functions should do one thing and stay short. Flag functions that have clearly outgrown a single screen of logic."},
	{Prefix: "readability", Label: "naming-conventions", Description: "Names must describe intent. Flag single-letter names outside tight loops and abbreviations that obscure meaning."},
	{Prefix: "readability", Label: "nested-complexity", Description: "Deeply nested conditionals and loops should be flattened with early returns or extracted helpers."},
	{Prefix: "readability", Label: "magic-numbers", Description: "Unexplained numeric or string literals in logic should be named constants."},
}

var maintainabilityPreset = []Guideline{
	{Prefix: "maintainability", Label: "single-responsibility", Description: "A type or module should have one reason to change. Flag changes that bolt unrelated concerns onto an existing unit."},
	{Prefix: "maintainability", Label: "cyclomatic-complexity", Description: "Flag branches-on-branches logic that makes a change risky to verify. Suggest decomposition."},
	{Prefix: "maintainability", Label: "dead-code", Description: "Commented-out code and unreachable branches must be deleted, not kept for reference."},
	{Prefix: "maintainability", Label: "error-handling", Description: "Errors must be handled or propagated, never silently discarded."},
}

var performancePreset = []Guideline{
	{Prefix: "performance", Label: "n-plus-one-queries", Description: "Flag database or API calls issued inside loops over a collection fetched by an outer call."},
	{Prefix: "performance", Label: "unbounded-allocations", Description: "Flag reads or accumulations of external data without a size bound."},
}

// presets maps preset name to its guideline list. IDs are filled in by
// init from prefix and label.
var presets = map[string][]Guideline{
	"security":        securityPreset,
	"readability":     readabilityPreset,
	"maintainability": maintainabilityPreset,
	"performance":     performancePreset,
}

func init() {
	for name, list := range presets {
		for i := range list {
			list[i].ID = list[i].Prefix + "/" + list[i].Label
		}
		presets[name] = list
	}
	// default is the union of security, readability, and maintainability
	// with duplicate IDs collapsed.
	var def []Guideline
	seen := make(map[string]bool)
	for _, name := range []string{"security", "readability", "maintainability"} {
		for _, g := range presets[name] {
			if seen[g.ID] {
				continue
			}
			seen[g.ID] = true
			def = append(def, g)
		}
	}
	presets["default"] = def
}

// Preset returns the guideline list for a built-in preset name.
func Preset(name string) ([]Guideline, bool) {
	list, ok := presets[name]
	return list, ok
}

// PresetNames returns the available preset names, default first.
func PresetNames() []string {
	return []string{"default", "maintainability", "performance", "readability", "security"}
}
