package analyzer

// Options controls which checks the analyzer runs.
type Options struct {
	// CrossFileChecks reports every cross-file call as an advisory warning,
	// since the referenced file is never opened here.
	CrossFileChecks bool
	// WarnUnused reports variables that are declared but never referenced.
	WarnUnused bool
	// StrictCoercion turns "may not be boolean" warnings into errors and
	// rejects `+` between a String and a non-String.
	StrictCoercion bool
	// Disabled lists warning codes to suppress. Error codes cannot be
	// disabled.
	Disabled []string
}

// DefaultOptions returns the default analyzer options.
func DefaultOptions() Options {
	return Options{
		CrossFileChecks: false,
		WarnUnused:      true,
		StrictCoercion:  false,
	}
}

// IsDisabled returns true if the warning code should be skipped.
func (o Options) IsDisabled(code string) bool {
	for _, c := range o.Disabled {
		if c == code {
			return true
		}
	}
	return false
}
