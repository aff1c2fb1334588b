// Package inject writes transcript deltas into a focused document element.
package inject

import (
	"fmt"
	"log/slog"

	"brainwave/internal/domain"
	"brainwave/internal/focus"
)

// Injector applies deltas to injection targets.
type Injector struct {
	logger *slog.Logger
}

func NewInjector(logger *slog.Logger) *Injector {
	return &Injector{logger: logger.With("component", "injector")}
}

// Inject replaces or appends delta.Content in target and notifies the host
// with one input event. The element is re-classified first; a target that
// was detached or changed shape fails with domain.ErrNoEligibleTarget.
// Empty content is a no-op.
func (i *Injector) Inject(delta domain.TranscriptDelta, target *focus.Target) error {
	if target == nil || target.Element == nil {
		return fmt.Errorf("%w: no focused field", domain.ErrNoEligibleTarget)
	}
	if delta.Content == "" {
		return nil
	}

	el := target.Element
	if !el.IsConnected() {
		return fmt.Errorf("%w: target detached", domain.ErrNoEligibleTarget)
	}

	switch focus.Classify(el) {
	case domain.PlainValue:
		if delta.IsReplace {
			el.SetValue(delta.Content)
		} else {
			el.SetValue(el.Value() + delta.Content)
		}
		el.DispatchInput()
		el.ScrollToEnd()
		el.Focus()
	case domain.ContentEditable:
		if delta.IsReplace {
			el.ClearChildren()
		}
		el.AppendText(delta.Content)
		el.DispatchInput()
		el.CollapseSelectionToEnd()
		el.Focus()
	default:
		return fmt.Errorf("%w: %s is no longer editable", domain.ErrNoEligibleTarget, el.TagName())
	}

	i.logger.Debug("text injected", "tag", el.TagName(), "replace", delta.IsReplace, "chars", len(delta.Content))
	return nil
}
