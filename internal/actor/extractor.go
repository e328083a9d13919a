package actor

import "strings"

// contextExtractor is the one Extractor implementation the actor installs
// on an internal (auto-context) turn: it concatenates whatever output the
// /context command produced and hands it to onComplete once the turn
// finishes. A nil onComplete makes collection a no-op, for callers that
// don't care to persist it anywhere.
type contextExtractor struct {
	parts      []string
	onComplete func(text string, timedOut bool)
	done       bool
}

func newContextExtractor(onComplete func(text string, timedOut bool)) *contextExtractor {
	return &contextExtractor{onComplete: onComplete}
}

// Accept implements turnengine.Extractor.
func (e *contextExtractor) Accept(text string) {
	if text == "" {
		return
	}
	e.parts = append(e.parts, text)
}

// Finalize implements turnengine.Extractor.
func (e *contextExtractor) Finalize(timedOut bool) {
	if e.done {
		return
	}
	e.done = true
	if e.onComplete != nil {
		e.onComplete(strings.Join(e.parts, ""), timedOut)
	}
}
