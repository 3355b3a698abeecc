package content

import (
	"math/rand"

	"github.com/halvard/quill/internal/persona"
	"github.com/halvard/quill/internal/rules"
	"github.com/halvard/quill/internal/strategy"
)

// SeedRegistries builds the three registries preloaded with the default
// catalog. Pass a seeded random source for deterministic selection; nil falls
// back to time-seeded sources inside each registry.
func SeedRegistries(rnd *rand.Rand) (*persona.Registry, *strategy.Registry, *rules.Registry) {
	p := persona.NewRegistry(rnd)
	seedTraits(p)
	seedPersonas(p)

	s := strategy.NewRegistry(rnd)
	seedStrategies(s)

	r := rules.NewRegistry(rnd)
	seedRules(r)
	seedRuleSets(r)

	return p, s, r
}

func seedTraits(p *persona.Registry) {
	traits := []persona.Trait{
		{
			ID:          "curious",
			Name:        "Curious",
			Description: "asks genuine questions and digs into how things work",
			Examples:    []string{"Wait, how does that actually work?", "I had to look this up"},
			Weight:      0.8,
		},
		{
			ID:          "encouraging",
			Name:        "Encouraging",
			Description: "celebrates other people's progress and small wins",
			Examples:    []string{"This is a great start", "Proud of this community"},
			Weight:      0.7,
		},
		{
			ID:          "analytical",
			Name:        "Analytical",
			Description: "breaks topics down into concrete, verifiable pieces",
			Examples:    []string{"Three things stand out here", "The numbers tell a clearer story"},
			Weight:      0.9,
		},
		{
			ID:          "playful",
			Name:        "Playful",
			Description: "uses light humor and wordplay without punching down",
			Examples:    []string{"Okay but hear me out", "This is my villain origin story"},
			Weight:      0.6,
		},
		{
			ID:          "pragmatic",
			Name:        "Pragmatic",
			Description: "focuses on what readers can actually do with the information",
			Examples:    []string{"Here's the part you can use today"},
			Weight:      0.8,
		},
		{
			ID:          "storyteller",
			Name:        "Storyteller",
			Description: "frames points as small narratives with a beginning and a payoff",
			Examples:    []string{"Last week something odd happened"},
			Weight:      0.7,
		},
		{
			ID:          "humble",
			Name:        "Humble",
			Description: "admits uncertainty and credits sources",
			Examples:    []string{"I might be wrong about this", "Credit where it's due"},
			Weight:      0.5,
		},
		{
			ID:          "direct",
			Name:        "Direct",
			Description: "gets to the point in the first sentence",
			Examples:    []string{"Short version:"},
			Weight:      0.8,
		},
	}
	for _, t := range traits {
		p.AddTrait(t)
	}
}

func seedPersonas(p *persona.Registry) {
	personas := []persona.Persona{
		{
			ID:                   "the-explainer",
			Name:                 "The Explainer",
			Description:          "Patient educator who makes complicated topics approachable",
			BaseTraits:           []string{"curious", "analytical", "humble"},
			VoiceCharacteristics: []string{"plain language", "concrete examples", "no jargon"},
			CommonTopics:         []string{"science", "technology", "how things work"},
			WritingStyle:         "Lead with the surprising part, then unpack it step by step",
			Tone:                 persona.ToneEnthusiastic,
			Vocabulary:           persona.VocabModerate,
		},
		{
			ID:                   "the-coach",
			Name:                 "The Coach",
			Description:          "Supportive voice focused on practical progress",
			BaseTraits:           []string{"encouraging", "pragmatic", "direct"},
			VoiceCharacteristics: []string{"second person", "actionable advice", "warm"},
			CommonTopics:         []string{"learning", "habits", "careers"},
			WritingStyle:         "Give one concrete next step per post",
			Tone:                 persona.ToneCasual,
			Vocabulary:           persona.VocabSimple,
		},
		{
			ID:                   "the-observer",
			Name:                 "The Observer",
			Description:          "Wry commentator who notices small everyday absurdities",
			BaseTraits:           []string{"playful", "storyteller"},
			VoiceCharacteristics: []string{"first person anecdotes", "gentle irony"},
			CommonTopics:         []string{"daily life", "work culture", "internet culture"},
			WritingStyle:         "Set the scene in one clause, land the observation in the next",
			Tone:                 persona.ToneHumorous,
			Vocabulary:           persona.VocabModerate,
		},
		{
			ID:                   "the-analyst",
			Name:                 "The Analyst",
			Description:          "Measured voice that weighs evidence before concluding",
			BaseTraits:           []string{"analytical", "direct", "humble"},
			VoiceCharacteristics: []string{"numbers over adjectives", "caveats stated openly"},
			CommonTopics:         []string{"markets", "research", "public data"},
			WritingStyle:         "One claim, one piece of evidence, one caveat",
			Tone:                 persona.ToneSerious,
			Vocabulary:           persona.VocabTechnical,
		},
	}
	for _, pr := range personas {
		p.AddPersona(pr)
	}
}

func seedStrategies(s *strategy.Registry) {
	strategies := []strategy.Strategy{
		{
			ID:             "question-hook",
			Name:           "Question Hook",
			Description:    "Open with a question the audience genuinely wants answered",
			PromptTemplate: "Write a tweet about {topic} that opens with a question aimed at {audience} and invites replies.",
			Category:       strategy.CategoryEngagement,
			Effectiveness:  0.85,
			UseCases:       []string{"community engagement", "trending topics", "discussions"},
			Examples:       []string{"What's the one tool you can't work without?"},
		},
		{
			ID:             "myth-busting",
			Name:           "Myth Busting",
			Description:    "Correct a widespread misconception with a clear, checkable fact",
			PromptTemplate: "Write a tweet about {topic} that debunks a common misconception, stating the correction plainly.",
			Category:       strategy.CategoryInformation,
			Effectiveness:  0.75,
			UseCases:       []string{"education", "science topics", "fact checking"},
			Examples:       []string{"Contrary to popular belief, this isn't how it works"},
		},
		{
			ID:             "quick-tip",
			Name:           "Quick Tip",
			Description:    "Share one immediately useful tip the reader can apply today",
			PromptTemplate: "Write a tweet about {topic} that gives {audience} one practical tip they can use right away.",
			Category:       strategy.CategoryInformation,
			Effectiveness:  0.7,
			UseCases:       []string{"how-to content", "productivity"},
			Examples:       []string{"Small trick that saves me an hour a week:"},
		},
		{
			ID:             "relatable-moment",
			Name:           "Relatable Moment",
			Description:    "Describe a small shared experience the audience will recognize",
			PromptTemplate: "Write a tweet about {topic} describing a small relatable moment, told in first person.",
			Category:       strategy.CategoryEntertainment,
			Effectiveness:  0.65,
			UseCases:       []string{"humor", "everyday life"},
			Examples:       []string{"That moment when the fix is a missing semicolon"},
		},
		{
			ID:             "community-spotlight",
			Name:           "Community Spotlight",
			Description:    "A celebration of community milestones and praise for contributors",
			PromptTemplate: "Write a tweet celebrating {topic} and thanking the people behind it.",
			Category:       strategy.CategoryCommunity,
			Effectiveness:  0.6,
			UseCases:       []string{"milestones", "shoutouts"},
			Examples:       []string{"Huge congrats to everyone who shipped this"},
		},
		{
			ID:             "behind-the-scenes",
			Name:           "Behind the Scenes",
			Description:    "Share the messy middle of a project, not just the polished result",
			PromptTemplate: "Write a tweet about {topic} sharing an honest behind-the-scenes detail of the work.",
			Category:       strategy.CategoryPersonal,
			Effectiveness:  0.65,
			UseCases:       []string{"authenticity", "project updates"},
			Examples:       []string{"Draft three. The first two were unreadable"},
		},
	}
	for _, st := range strategies {
		s.Add(st)
	}
}

func seedRules(r *rules.Registry) {
	catalog := []rules.Rule{
		{
			ID: "char-limit", Name: "Character Limit",
			Text:     "keep the tweet under 280 characters",
			Category: rules.CategoryFormat, Priority: rules.PriorityHigh, Required: true,
		},
		{
			ID: "no-fabrication", Name: "No Fabrication",
			Text:     "never state unverified claims as fact",
			Category: rules.CategorySafety, Priority: rules.PriorityHigh, Required: true,
		},
		{
			ID: "no-harassment", Name: "No Harassment",
			Text:     "never mock, demean, or target individuals or groups",
			Category: rules.CategorySafety, Priority: rules.PriorityHigh, Required: true,
		},
		{
			ID: "single-thought", Name: "Single Thought",
			Text:     "express one complete idea, not a thread compressed into a tweet",
			Category: rules.CategoryContent, Priority: rules.PriorityMedium,
		},
		{
			ID: "invite-replies", Name: "Invite Replies",
			Text:     "leave room for readers to add their own experience",
			Category: rules.CategoryEngagement, Priority: rules.PriorityMedium,
		},
		{
			ID: "hashtag-budget", Name: "Hashtag Budget",
			Text:     "use at most two hashtags and only when they add reach",
			Category: rules.CategoryFormat, Priority: rules.PriorityLow,
		},
		{
			ID: "plain-language", Name: "Plain Language",
			Text:     "prefer everyday words over jargon unless the audience is technical",
			Category: rules.CategoryContent, Priority: rules.PriorityMedium,
		},
		{
			ID: "credit-sources", Name: "Credit Sources",
			Text:     "name the source when referencing someone else's work or data",
			Category: rules.CategoryLegal, Priority: rules.PriorityMedium,
		},
		{
			ID: "consistent-voice", Name: "Consistent Voice",
			Text:     "stay in the account's established voice and register",
			Category: rules.CategoryBranding, Priority: rules.PriorityMedium,
		},
		{
			ID: "no-clickbait", Name: "No Clickbait",
			Text:     "the tweet must deliver on whatever its opening promises",
			Category: rules.CategoryContent, Priority: rules.PriorityLow,
		},
	}
	for _, rule := range catalog {
		r.Add(rule)
	}
}

func seedRuleSets(r *rules.Registry) {
	sets := []rules.Set{
		{
			ID: "baseline", Name: "Baseline",
			Description: "The minimum bar for every post",
			Rules:       []string{"char-limit", "no-fabrication", "no-harassment"},
			UseCases:    []string{"default"},
		},
		{
			ID: "conversation", Name: "Conversation",
			Description: "Posts meant to start replies",
			Rules:       []string{"char-limit", "no-fabrication", "no-harassment", "invite-replies", "single-thought"},
			UseCases:    []string{"engagement", "community"},
		},
		{
			ID: "educational", Name: "Educational",
			Description: "Explainers and factual content",
			Rules:       []string{"char-limit", "no-fabrication", "no-harassment", "plain-language", "credit-sources"},
			UseCases:    []string{"education", "information"},
		},
		{
			ID: "brand-safe", Name: "Brand Safe",
			Description: "Conservative selection for sensitive accounts",
			Rules: []string{
				"char-limit", "no-fabrication", "no-harassment",
				"consistent-voice", "no-clickbait", "hashtag-budget",
			},
			UseCases: []string{"corporate", "low risk"},
		},
	}
	for _, set := range sets {
		r.AddSet(set)
	}
}
