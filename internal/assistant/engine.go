package assistant

import (
	"context"
	"maps"
	"strings"
	"time"

	"chore-assistant-backend/internal/session"
)

var (
	DefaultConfirmTokens = []string{"确认", "yes", "确认创建"}
	DefaultYesTokens     = []string{"是", "yes"}
)

const DefaultSubmitTimeout = 10 * time.Second

// Submitter creates the chore downstream.
type Submitter interface {
	Submit(ctx context.Context, payload map[string]string, token string) error
}

type Options struct {
	ConfirmTokens []string
	YesTokens     []string
	SubmitTimeout time.Duration

	// ConditionalAnswers lets a non-confirming reply fill the first missing
	// follow-up field while the summary is pending. Off by default, in which
	// case such replies only get the confirm-or-edit hint.
	ConditionalAnswers bool
}

// Engine runs the slot-filling dialogue one turn at a time. It holds no
// per-session state; callers load and persist sessions around Step.
type Engine struct {
	submitter          Submitter
	confirm            tokenSet
	yes                tokenSet
	timeout            time.Duration
	templates          Templates
	conditionalAnswers bool
}

func NewEngine(submitter Submitter, opts Options) *Engine {
	confirm := opts.ConfirmTokens
	if len(confirm) == 0 {
		confirm = DefaultConfirmTokens
	}
	yes := opts.YesTokens
	if len(yes) == 0 {
		yes = DefaultYesTokens
	}
	timeout := opts.SubmitTimeout
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}

	return &Engine{
		submitter:          submitter,
		confirm:            newTokenSet(confirm),
		yes:                newTokenSet(yes),
		timeout:            timeout,
		templates:          DefaultTemplates(),
		conditionalAnswers: opts.ConditionalAnswers,
	}
}

// Step applies one utterance to in and returns the next session state with
// the reply. in is never modified.
func (e *Engine) Step(ctx context.Context, in session.Session, utterance, token string) (session.Session, Reply) {
	sess := in.Clone()

	next, missing := NextRequired(sess.Slots)
	if !missing {
		return e.confirmTurn(ctx, sess, utterance, token)
	}

	value := strings.TrimSpace(utterance)
	sess.Slots[next] = value

	if rule, ok := e.triggeredBy(next, value); ok {
		return sess, e.templates.askConditional(rule.Field)
	}

	if after, ok := NextRequired(sess.Slots); ok {
		return sess, e.templates.askField(after)
	}

	sess.ConfirmationPending = true
	return sess, e.templates.summary(sess.Slots)
}

func (e *Engine) confirmTurn(ctx context.Context, sess session.Session, utterance, token string) (session.Session, Reply) {
	if !sess.ConfirmationPending {
		sess.ConfirmationPending = true
		return sess, e.templates.summary(sess.Slots)
	}

	if !e.confirm.has(utterance) {
		if field, ok := e.MissingConditional(sess.Slots); ok && e.conditionalAnswers {
			sess.Slots[field] = strings.TrimSpace(utterance)
			return sess, e.templates.summary(sess.Slots)
		}
		return sess, Reply{Kind: ReplyConfirmHint, Text: e.templates.ConfirmHint}
	}

	if field, ok := e.MissingConditional(sess.Slots); ok {
		return sess, e.templates.askConditional(field)
	}

	payload := maps.Clone(sess.Slots)

	submitCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	if err := e.submitter.Submit(submitCtx, payload, token); err != nil {
		return sess, e.templates.submitFailed(err)
	}

	return sess.Reset(), Reply{Kind: ReplySubmitted, Text: e.templates.Submitted}
}

// MissingConditional returns the first triggered follow-up field that has
// no value yet.
func (e *Engine) MissingConditional(slots map[string]string) (string, bool) {
	for _, rule := range conditionalRules {
		if _, ok := slots[rule.Field]; ok {
			continue
		}
		if e.matches(rule, slots[rule.Trigger]) {
			return rule.Field, true
		}
	}
	return "", false
}

// Submittable reports whether a confirmation would reach the submitter.
func (e *Engine) Submittable(slots map[string]string) bool {
	if !IsComplete(slots) {
		return false
	}
	_, missing := e.MissingConditional(slots)
	return !missing
}

func (e *Engine) triggeredBy(field, value string) (conditionalRule, bool) {
	for _, rule := range conditionalRules {
		if rule.Trigger == field && e.matches(rule, value) {
			return rule, true
		}
	}
	return conditionalRule{}, false
}

func (e *Engine) matches(rule conditionalRule, value string) bool {
	if rule.yes {
		return e.yes.has(value)
	}
	return strings.TrimSpace(value) == rule.equals
}
