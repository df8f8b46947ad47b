package classify

import "errors"

var (
	// ErrInvalidRules is returned when a rule table cannot be parsed or compiled.
	ErrInvalidRules = errors.New("invalid rule table")

	// ErrEmptyCategory is returned when a rule has no category name.
	ErrEmptyCategory = errors.New("rule category cannot be empty")

	// ErrNoPatternGroups is returned when a rule defines no pattern groups.
	ErrNoPatternGroups = errors.New("rule has no pattern groups")

	// ErrNoPatterns is returned when a pattern group defines no patterns.
	ErrNoPatterns = errors.New("pattern group has no patterns")

	// ErrRulesRequired is returned when a classifier is built without rules.
	ErrRulesRequired = errors.New("rule set required")
)
