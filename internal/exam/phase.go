package exam

import "strings"

// Subjects the platform offers. Mail is the canonical subject: shared phases
// (behavioral, language, knowledge) are defined once under it in the bank,
// and unknown subjects resolve to its phase list.
const (
	SubjectMail    = "mail"
	SubjectMath    = "math"
	SubjectEnglish = "english"
	SubjectScience = "science"
	SubjectSocial  = "social"
	SubjectArabic  = "arabic"
)

// Subjects lists the fixed enumerated subject set.
func Subjects() []string {
	return []string{SubjectMail, SubjectMath, SubjectEnglish, SubjectScience, SubjectSocial, SubjectArabic}
}

// KnownSubject reports whether subject is one of the enumerated set.
func KnownSubject(subject string) bool {
	for _, s := range Subjects() {
		if s == subject {
			return true
		}
	}
	return false
}

// PhaseID identifies a timed exam segment. Sub is empty for simple phases
// (behavioral, education) and set for sub-phases (language -> arabic).
// String() keeps the legacy "main_sub" shape used as the persisted map key.
type PhaseID struct {
	Main string `json:"main"`
	Sub  string `json:"sub,omitempty"`
}

// Compound reports whether the phase carries a sub-phase.
func (p PhaseID) Compound() bool {
	return p.Sub != ""
}

// String renders the persisted key form: "language_arabic" or "behavioral".
func (p PhaseID) String() string {
	if p.Sub == "" {
		return p.Main
	}
	return p.Main + "_" + p.Sub
}

// ParsePhaseID splits a persisted "main_sub" key back into its parts.
// A key without the separator is a simple phase.
func ParsePhaseID(key string) PhaseID {
	main, sub, found := strings.Cut(key, "_")
	if !found {
		return PhaseID{Main: key}
	}
	return PhaseID{Main: main, Sub: sub}
}

// PhasesFor derives the ordered phase list for a subject. Every subject takes
// the shared behavioral, language and knowledge segments; mail adds its own
// specialization, all other subjects add education plus their specialization.
// Unknown subjects get the mail list.
func PhasesFor(subject string) []PhaseID {
	phases := []PhaseID{
		{Main: "behavioral"},
		{Main: "language", Sub: "arabic"},
		{Main: "language", Sub: "english"},
		{Main: "knowledge", Sub: "iq"},
		{Main: "knowledge", Sub: "general"},
		{Main: "knowledge", Sub: "it"},
	}

	switch subject {
	case SubjectMail:
		phases = append(phases, PhaseID{Main: "specialization"})
	case SubjectMath, SubjectEnglish, SubjectScience, SubjectSocial, SubjectArabic:
		phases = append(phases,
			PhaseID{Main: "education"},
			PhaseID{Main: "specialization"},
		)
	default:
		return PhasesFor(SubjectMail)
	}
	return phases
}
