package assistant

import (
	"fmt"
	"slices"
	"strings"
)

type ReplyKind string

const (
	ReplyAskField       ReplyKind = "ask_field"
	ReplyAskConditional ReplyKind = "ask_conditional"
	ReplySummary        ReplyKind = "summary"
	ReplyConfirmHint    ReplyKind = "confirm_hint"
	ReplySubmitted      ReplyKind = "submitted"
	ReplySubmitFailed   ReplyKind = "submit_failed"
)

// Reply is the outcome of one turn. Field names the slot the reply asks for,
// when it asks for one. Err is set only for ReplySubmitFailed.
type Reply struct {
	Kind  ReplyKind
	Text  string
	Field string
	Err   error
}

// Templates holds the user-facing wording.
type Templates struct {
	AskField           string // %s is the field name
	ConditionalPrompts map[string]string
	SummaryHeader      string
	SummaryFooter      string
	ConfirmHint        string
	Submitted          string
	SubmitFailed       string // %s is the raw upstream error
}

func DefaultTemplates() Templates {
	return Templates{
		AskField: "请补充%s：",
		ConditionalPrompts: map[string]string{
			FieldEndDay:            "请补充结束日期（endDay）",
			FieldRotateEveryCounts: "请补充每人做几次（rotateEveryCounts）",
			FieldRepeatsType:       "请补充家务循环类型（repeatsType，daily/weekly）",
		},
		SummaryHeader: "请确认以下信息：",
		SummaryFooter: "如无误请回复“确认”，如需修改请直接输入需修改的字段。",
		ConfirmHint:   "如需创建请回复“确认”，如需修改请直接输入需修改的字段。",
		Submitted:     "家务创建成功！",
		SubmitFailed:  "家务创建失败：%s",
	}
}

func (t Templates) askField(field string) Reply {
	return Reply{Kind: ReplyAskField, Field: field, Text: fmt.Sprintf(t.AskField, field)}
}

func (t Templates) askConditional(field string) Reply {
	text, ok := t.ConditionalPrompts[field]
	if !ok {
		text = fmt.Sprintf(t.AskField, field)
	}
	return Reply{Kind: ReplyAskConditional, Field: field, Text: text}
}

func (t Templates) summary(slots map[string]string) Reply {
	var b strings.Builder
	b.WriteString(t.SummaryHeader)
	for _, k := range summaryOrder(slots) {
		b.WriteString("\n")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(slots[k])
	}
	b.WriteString("\n")
	b.WriteString(t.SummaryFooter)
	return Reply{Kind: ReplySummary, Text: b.String()}
}

func (t Templates) submitFailed(err error) Reply {
	return Reply{Kind: ReplySubmitFailed, Err: err, Text: fmt.Sprintf(t.SubmitFailed, err.Error())}
}

// summaryOrder lists required fields first, then conditional ones, then
// anything else alphabetically.
func summaryOrder(slots map[string]string) []string {
	keys := make([]string, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, f := range append(slices.Clone(RequiredFields), ConditionalFields()...) {
		if _, ok := slots[f]; ok {
			keys = append(keys, f)
			seen[f] = true
		}
	}
	var rest []string
	for k := range slots {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	return append(keys, rest...)
}
