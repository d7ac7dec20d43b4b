package catalog

// FileMapping associates a table with a file-path regex pattern and CSV
// parsing options (spec.md §3.7).
type FileMapping struct {
	Table         string `yaml:"table"`
	Pattern       string `yaml:"pattern"`
	Delimiter     string `yaml:"delimiter"`
	SkipFirstLine bool   `yaml:"skip_first_line"`
}

// DelimiterRune returns the mapping's delimiter as a rune, defaulting to a
// comma if unset or malformed.
func (m FileMapping) DelimiterRune() rune {
	for _, r := range m.Delimiter {
		return r
	}
	return ','
}
