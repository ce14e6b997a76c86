// Package prompt builds the instructions sent to the language model.
package prompt

import (
	"fmt"

	"github.com/blinderchief/visiolingua/internal/domain/grounding"
)

// DefaultLength is the story length hint used when none is given.
const DefaultLength = "short"

// DefaultStyle is the summary style used when none is given.
const DefaultStyle = "descriptive"

// Prompt is a model instruction, optionally conditioned on an image.
type Prompt struct {
	Text  string
	Image []byte
}

// HasImage reports whether the prompt carries image bytes.
func (p Prompt) HasImage() bool { return len(p.Image) > 0 }

// DescribeImage asks for a detailed description of an image. Used for captions.
func DescribeImage(lang string, image []byte) Prompt {
	return Prompt{
		Text: fmt.Sprintf("Describe what you see in this image in %s. Be specific and detailed about "+
			"the objects, colors, composition, and any text or notable features.", lang),
		Image: image,
	}
}

// AskImage asks a question about an image. An empty question falls back to DescribeImage.
func AskImage(lang, question string, image []byte) Prompt {
	if question == "" {
		return DescribeImage(lang, image)
	}
	return Prompt{
		Text: fmt.Sprintf("Look at this image carefully and answer the following question in %s: %s\n\n"+
			"Provide a clear, direct answer based on what you see in the image.", lang, question),
		Image: image,
	}
}

// AskText answers a question from textual context. An empty question summarizes instead.
func AskText(lang, question, context string) Prompt {
	if question == "" {
		return Summarize(lang, DefaultStyle, context)
	}
	return Prompt{
		Text: fmt.Sprintf("Based on this context, answer the question in %s: %s\n\nContext: %s", lang, question, context),
	}
}

// Summarize asks for a summary of text in the given style.
func Summarize(lang, style, text string) Prompt {
	if style == "" {
		style = DefaultStyle
	}
	return Prompt{Text: fmt.Sprintf("Summarize this text in %s with a %s style:\n\n%s", lang, style, text)}
}

// StoryFromImage asks for a story grounded strictly in an image.
func StoryFromImage(lang, theme, length string, image []byte) Prompt {
	return Prompt{
		Text: fmt.Sprintf("You are a careful visual storyteller. Look closely at the image and write a %s story in %s.\n"+
			"Ground every detail in the image only, do not invent objects, colors, text, or scenes that aren't visible.%s\n"+
			"Focus on mood, setting, and narrative that emerge from what is actually present.",
			orDefault(length), lang, themePart(theme)),
		Image: image,
	}
}

// StoryFromText asks for a story grounded in textual context.
func StoryFromText(lang, theme, length, context string) Prompt {
	return Prompt{
		Text: fmt.Sprintf("Write a %s story in %s grounded in the following context.\n"+
			"Do not add objects or details beyond what the context implies.\n%s\n\nContext:\n%s",
			orDefault(length), lang, themePart(theme), context),
	}
}

// Ungrounded asks for a story from a theme alone.
func Ungrounded(lang, theme string) Prompt {
	return Prompt{
		Text: fmt.Sprintf("Write a creative short story in %s inspired by the theme: %s. "+
			"No image was found for the user, so do not reference visual details.", lang, theme),
	}
}

// Story picks the story prompt matching a grounding decision.
func Story(d grounding.Decision, lang string) Prompt {
	switch d.Kind() {
	case grounding.OnImage:
		return StoryFromImage(lang, d.Theme(), DefaultLength, d.Image())
	case grounding.OnText:
		return StoryFromText(lang, d.Theme(), DefaultLength, d.Text())
	default:
		return Ungrounded(lang, d.Theme())
	}
}

// Translate asks for a plain translation of text.
func Translate(from, to, text string) Prompt {
	return Prompt{
		Text: fmt.Sprintf("Translate the following text from %s to %s. "+
			"Reply with the translation only, without quotes or commentary.\n\n%s", from, to, text),
	}
}

func themePart(theme string) string {
	if theme == "" {
		return ""
	}
	return fmt.Sprintf(" The theme is: %s.", theme)
}

func orDefault(length string) string {
	if length == "" {
		return DefaultLength
	}
	return length
}

// Placeholder texts returned in place of a generation that could not be produced.
const (
	ImageUnavailable = "Image description not available due to API limits."
	TryAgainLater    = "The language model is busy right now. Please try again later."
)

// TextUnavailable is the placeholder for a failed text-conditioned answer.
// It echoes up to 100 runes of the context the answer would have used.
func TextUnavailable(context string) string {
	r := []rune(context)
	if len(r) > 100 {
		r = r[:100]
	}
	return fmt.Sprintf("Description not available due to API limits. Original content: %s...", string(r))
}

// StoryUnavailable is the placeholder for a failed story.
func StoryUnavailable(theme string) string {
	return fmt.Sprintf("A story inspired by '%s'. Due to a temporary error, the output may be limited.", theme)
}
