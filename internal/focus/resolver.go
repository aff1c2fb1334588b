// Package focus classifies document elements and tracks the most recently
// focused eligible one.
package focus

import (
	"strings"
	"sync"

	"github.com/samber/lo"

	"brainwave/internal/domain"
	"brainwave/internal/ports"
)

var plainInputTypes = []string{"text", "search", "email", "url", "tel"}

// Classify decides how text may be injected into el.
func Classify(el ports.Element) domain.CapabilityClass {
	if el == nil {
		return domain.Ineligible
	}
	switch strings.ToLower(el.TagName()) {
	case "textarea":
		return domain.PlainValue
	case "input":
		if lo.Contains(plainInputTypes, el.InputType()) {
			return domain.PlainValue
		}
		return domain.Ineligible
	}
	if el.IsContentEditable() {
		return domain.ContentEditable
	}
	return domain.Ineligible
}

// Describe extracts display metadata for el.
func Describe(el ports.Element) domain.FieldDescriptor {
	return domain.FieldDescriptor{
		TagName:           strings.ToLower(el.TagName()),
		ID:                el.Attribute("id"),
		Name:              el.Attribute("name"),
		ClassName:         el.Attribute("class"),
		Placeholder:       el.Attribute("placeholder"),
		IsContentEditable: el.IsContentEditable(),
	}
}

// Target is an eligible element with its class captured at focus time.
type Target struct {
	Element    ports.Element
	Class      domain.CapabilityClass
	Descriptor domain.FieldDescriptor
}

// Resolver remembers the last eligible element to receive focus. Focus on
// ineligible elements leaves the current target untouched.
type Resolver struct {
	mu      sync.Mutex
	current *Target
}

func NewResolver() *Resolver {
	return &Resolver{}
}

// Observe records a focus event and reports whether el became the target.
func (r *Resolver) Observe(el ports.Element) (Target, bool) {
	class := Classify(el)
	if class == domain.Ineligible {
		return Target{}, false
	}

	target := Target{Element: el, Class: class, Descriptor: Describe(el)}
	r.mu.Lock()
	r.current = &target
	r.mu.Unlock()
	return target, true
}

// Current returns the tracked target, or nil when nothing eligible has been
// focused.
func (r *Resolver) Current() *Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	target := *r.current
	return &target
}

// Forget clears the tracked target.
func (r *Resolver) Forget() {
	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()
}
