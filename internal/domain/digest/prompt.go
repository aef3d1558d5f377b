package digest

import (
	"strings"
)

// modeProfile binds a mode to its audience and framing.
type modeProfile struct {
	Audience string
	Persona  string
	Focus    string
	Voice    string
}

var modeProfiles = map[Mode]modeProfile{
	ModeBusiness: {
		Audience: "Business Professionals",
		Persona:  "You are an expert business analyst who briefs busy executives.",
		Focus:    "Focus on strategic implications, market impact, risks, and actionable takeaways.",
		Voice:    "Use a concise, professional tone.",
	},
	ModeStudent: {
		Audience: "Students",
		Persona:  "You are a patient teacher who helps students understand new material.",
		Focus:    "Focus on the core concepts, definitions, and why they matter, with simple examples where useful.",
		Voice:    "Use clear, approachable language and avoid unexplained jargon.",
	},
	ModeCode: {
		Audience: "Developers",
		Persona:  "You are a senior software engineer summarizing material for other developers.",
		Focus:    "Focus on technical details, APIs, architecture decisions, trade-offs, and practical implementation notes.",
		Voice:    "Use precise technical language.",
	},
	ModeGenZ: {
		Audience: "Gen Z",
		Persona:  "You are a witty content creator explaining things to a Gen Z audience.",
		Focus:    "Focus on what actually matters and why anyone should care.",
		Voice:    "Keep it casual, energetic, and relatable, with light slang, while staying accurate.",
	},
}

const (
	tldrMarker      = "**TL;DR:**"
	keyPointsMarker = "**Key Points:**"
	promptSeparator = "\n\n---\n\n"
)

// Audience returns the audience label for mode, falling back to business.
func Audience(mode Mode) string {
	return profileFor(mode).Audience
}

// profileFor returns the profile of mode. Unknown modes get the business
// profile; callers that need strictness validate the mode first.
func profileFor(mode Mode) modeProfile {
	if p, ok := modeProfiles[mode]; ok {
		return p
	}
	return modeProfiles[ModeBusiness]
}

// Template returns the instruction template for mode and style.
func Template(mode Mode, style OutputStyle) string {
	p := profileFor(mode)
	var b strings.Builder
	b.WriteString(p.Persona)
	b.WriteString(" Summarize the content below for ")
	b.WriteString(p.Audience)
	b.WriteString(". ")
	b.WriteString(p.Focus)
	b.WriteString(" ")
	b.WriteString(p.Voice)
	b.WriteString("\n\n")

	if style == StyleParagraph {
		b.WriteString("Write 3-4 well developed, flowing paragraphs that capture the main ideas, key details, and conclusions. ")
		b.WriteString("Do not use headings, bullet points, numbered lists, or markdown formatting. ")
		b.WriteString("Do not invent information that is not in the content.")
		return b.String()
	}

	b.WriteString("Format your response EXACTLY as follows:\n\n")
	b.WriteString(tldrMarker)
	b.WriteString(" [2-3 sentence summary of the content]\n\n")
	b.WriteString(keyPointsMarker)
	b.WriteString("\n")
	for i := 0; i < 5; i++ {
		b.WriteString("• [key point]\n")
	}
	b.WriteString("\nUse exactly these markers, give exactly 5 key points, and do not add any other sections. ")
	b.WriteString("Do not invent information that is not in the content.")
	return b.String()
}

// BuildPrompt concatenates the template, the optional source label and the content.
func BuildPrompt(text string, mode Mode, style OutputStyle, sourceLabel string) string {
	var b strings.Builder
	b.WriteString(Template(mode, style))
	if label := strings.TrimSpace(sourceLabel); label != "" {
		b.WriteString(promptSeparator)
		b.WriteString("Source: ")
		b.WriteString(label)
	}
	b.WriteString(promptSeparator)
	b.WriteString("Content:\n")
	b.WriteString(text)
	return b.String()
}
