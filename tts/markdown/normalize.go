// Package markdown reduces article Markdown to plain narration text.
package markdown

import (
	"regexp"
	"strings"
)

// Normalization strips everything a listener should not hear: image
// syntax, link targets, bare URLs, and formatting markup. The result is
// stable under re-normalization, which keeps chunk boundaries stable for
// cache keys.
var (
	fencedCodeRegex   = regexp.MustCompile("(?s)```.*?```|~~~.*?~~~")
	htmlImgRegex      = regexp.MustCompile(`(?i)<img[^>]*>`)
	htmlTagRegex      = regexp.MustCompile(`<[^>]+>`)
	inlineImageRegex  = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	refImageRegex     = regexp.MustCompile(`!\[[^\]]*\]\[[^\]]*\]`)
	refDefinitionRe   = regexp.MustCompile(`(?m)^\s*\[[^\]]+\]:\s+\S+.*$`)
	inlineLinkRegex   = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	refLinkRegex      = regexp.MustCompile(`\[([^\]]+)\]\[[^\]]*\]`)
	inlineCodeRegex   = regexp.MustCompile("`([^`]+)`")
	strongRegex       = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	emphasisRegex     = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
	strikeRegex       = regexp.MustCompile(`~~([^~]+)~~`)
	headingRegex      = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	blockquoteRegex   = regexp.MustCompile(`(?m)^\s*>\s?`)
	listMarkerRegex   = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+\.)\s+`)
	horizontalRuleRe  = regexp.MustCompile(`(?m)^\s*(?:[-*_]\s*){3,}$`)
	bareURLRegex      = regexp.MustCompile(`https?://\S+|www\.\S+`)
	spaceRunRegex     = regexp.MustCompile(`[ \t]+`)
	trailingSpaceRe   = regexp.MustCompile(`(?m)[ \t]+$`)
	blankLineRunRegex = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
)

// Normalize converts raw article Markdown into plain narration text.
// It never fails; the result may be empty. Normalizing already-normalized
// text is a no-op.
func Normalize(md string) string {
	text := md

	// Code blocks are not narratable; drop them whole. Inline code keeps
	// its text with the backticks removed.
	text = fencedCodeRegex.ReplaceAllString(text, " ")

	text = htmlImgRegex.ReplaceAllString(text, " ")
	text = htmlTagRegex.ReplaceAllString(text, "")

	text = inlineImageRegex.ReplaceAllString(text, " ")
	text = refImageRegex.ReplaceAllString(text, " ")
	text = refDefinitionRe.ReplaceAllString(text, "")

	// Links speak their visible label only.
	text = inlineLinkRegex.ReplaceAllString(text, "$1")
	text = refLinkRegex.ReplaceAllString(text, "$1")

	text = inlineCodeRegex.ReplaceAllString(text, "$1")
	text = strongRegex.ReplaceAllString(text, "$1$2")
	text = emphasisRegex.ReplaceAllString(text, "$1$2")
	text = strikeRegex.ReplaceAllString(text, "$1")

	text = headingRegex.ReplaceAllString(text, "")
	text = blockquoteRegex.ReplaceAllString(text, "")
	text = listMarkerRegex.ReplaceAllString(text, "")
	text = horizontalRuleRe.ReplaceAllString(text, "")

	text = bareURLRegex.ReplaceAllString(text, "")

	text = spaceRunRegex.ReplaceAllString(text, " ")
	text = trailingSpaceRe.ReplaceAllString(text, "")
	text = blankLineRunRegex.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
