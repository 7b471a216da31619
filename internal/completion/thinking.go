package completion

import "strings"

// AutoThinkingBudget lets the model choose its own budget.
const AutoThinkingBudget int32 = -1

// ThinkingProfile is the budget range a model accepts. Idle is used for the
// first turn of a conversation, where a short answer is expected.
type ThinkingProfile struct {
	Min        int32
	Max        int32
	Idle       int32
	CanDisable bool
}

// ThinkingPolicy maps model names to profiles. Models without a profile get
// no thinking budget at all.
type ThinkingPolicy struct {
	Profiles map[string]ThinkingProfile
}

// DefaultThinkingPolicy covers the Gemini models that accept a budget.
func DefaultThinkingPolicy() ThinkingPolicy {
	return ThinkingPolicy{Profiles: map[string]ThinkingProfile{
		"gemini-2.5-pro":        {Min: 128, Max: 32768, Idle: 128},
		"gemini-2.5-flash":      {Min: 1, Max: 24576, Idle: 0, CanDisable: true},
		"gemini-2.5-flash-lite": {Min: 512, Max: 24576, Idle: 0, CanDisable: true},
	}}
}

func (p ThinkingPolicy) profile(model string) (ThinkingProfile, bool) {
	model = strings.TrimSpace(model)
	if prof, ok := p.Profiles[model]; ok {
		return prof, true
	}
	// Versioned names such as gemini-2.5-flash-preview-05-20 share the base profile.
	best := ""
	for name := range p.Profiles {
		if strings.HasPrefix(model, name+"-") && len(name) > len(best) {
			best = name
		}
	}
	if best == "" {
		return ThinkingProfile{}, false
	}
	return p.Profiles[best], true
}

// Budget returns the thinking budget for one attempt, or nil when the model
// takes none. priorTurns is the number of turns before the current user turn.
func (p ThinkingPolicy) Budget(model string, priorTurns int, configured *int) *int32 {
	prof, ok := p.profile(model)
	if !ok {
		return nil
	}
	if priorTurns <= 0 {
		v := prof.Idle
		return &v
	}
	v := AutoThinkingBudget
	if configured != nil && *configured >= 0 {
		v = clampBudget(int32(min(*configured, 1<<30)), prof)
	}
	return &v
}

func clampBudget(v int32, prof ThinkingProfile) int32 {
	if v == 0 && prof.CanDisable {
		return 0
	}
	if v < prof.Min {
		return prof.Min
	}
	if v > prof.Max {
		return prof.Max
	}
	return v
}
