package persona

// Tone describes the overall emotional register of a persona.
type Tone string

const (
	ToneFormal       Tone = "formal"
	ToneCasual       Tone = "casual"
	ToneSarcastic    Tone = "sarcastic"
	ToneEnthusiastic Tone = "enthusiastic"
	ToneCritical     Tone = "critical"
	ToneHumorous     Tone = "humorous"
	ToneSerious      Tone = "serious"
)

// Vocabulary describes the register of word choice for a persona.
type Vocabulary string

const (
	VocabSimple    Vocabulary = "simple"
	VocabModerate  Vocabulary = "moderate"
	VocabComplex   Vocabulary = "complex"
	VocabTechnical Vocabulary = "technical"
	VocabSlang     Vocabulary = "slang"
)

// Trait is a single personality trait. Traits are immutable once registered
// and are referenced by ID from personas, never owned by them.
type Trait struct {
	ID          string
	Name        string
	Description string
	Examples    []string
	Weight      float64 // in [0,1], how strongly the trait applies
}

// Persona is a named bundle of trait references plus voice metadata.
type Persona struct {
	ID                   string
	Name                 string
	Description          string
	BaseTraits           []string // trait IDs
	VoiceCharacteristics []string
	CommonTopics         []string
	WritingStyle         string
	Tone                 Tone
	Vocabulary           Vocabulary
}

// Resolved is a persona with its trait references expanded into full trait
// records and the derived prompt fragments computed. Resolution is pure given
// the registry contents.
type Resolved struct {
	ID                  string
	Name                string
	Description         string
	Traits              []Trait
	VoicePrompt         string
	WritingInstructions string
}

// TraitNames returns the names of the resolved traits in order.
func (r Resolved) TraitNames() []string {
	names := make([]string, len(r.Traits))
	for i, t := range r.Traits {
		names[i] = t.Name
	}
	return names
}
