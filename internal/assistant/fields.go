package assistant

import "strings"

const (
	FieldChoreName    = "choreName"
	FieldIcon         = "icon"
	FieldStartDay     = "startDay"
	FieldRepeatsUntil = "repeatsUntil"
	FieldDueTime      = "dueTime"
	FieldChoreType    = "choreType"
	FieldRepeats      = "repeats"
	FieldMemberUids   = "memberUids"

	FieldEndDay            = "endDay"
	FieldRotateEveryCounts = "rotateEveryCounts"
	FieldRepeatsType       = "repeatsType"

	ChoreTypeRotate = "Rotate"
)

// RequiredFields is asked for in this order: the next question is always the
// first entry missing from the slots.
var RequiredFields = []string{
	FieldChoreName,
	FieldIcon,
	FieldStartDay,
	FieldRepeatsUntil,
	FieldDueTime,
	FieldChoreType,
	FieldRepeats,
	FieldMemberUids,
}

// conditionalRule makes Field mandatory when the value stored under Trigger
// satisfies the rule. Rules are evaluated in declaration order.
type conditionalRule struct {
	Field   string
	Trigger string
	yes     bool
	equals  string
}

var conditionalRules = []conditionalRule{
	{Field: FieldEndDay, Trigger: FieldRepeatsUntil, yes: true},
	{Field: FieldRotateEveryCounts, Trigger: FieldChoreType, equals: ChoreTypeRotate},
	{Field: FieldRepeatsType, Trigger: FieldRepeats, yes: true},
}

// ConditionalFields lists the follow-up fields in the order they are checked.
func ConditionalFields() []string {
	out := make([]string, len(conditionalRules))
	for i, r := range conditionalRules {
		out[i] = r.Field
	}
	return out
}

// KnownField reports whether name can ever appear as a slot key.
func KnownField(name string) bool {
	for _, f := range RequiredFields {
		if f == name {
			return true
		}
	}
	for _, r := range conditionalRules {
		if r.Field == name {
			return true
		}
	}
	return false
}

// NextRequired returns the first required field not yet present.
func NextRequired(slots map[string]string) (string, bool) {
	for _, f := range RequiredFields {
		if _, ok := slots[f]; !ok {
			return f, true
		}
	}
	return "", false
}

func IsComplete(slots map[string]string) bool {
	_, missing := NextRequired(slots)
	return !missing
}

// tokenSet is a case-insensitive set of literal replies.
type tokenSet map[string]struct{}

func newTokenSet(tokens []string) tokenSet {
	set := make(tokenSet, len(tokens))
	for _, t := range tokens {
		t = normalize(t)
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

func (s tokenSet) has(v string) bool {
	_, ok := s[normalize(v)]
	return ok
}

func normalize(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
