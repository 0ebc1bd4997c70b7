package bot

import (
	"fmt"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/starford/ansuz/internal/knowledge"
	"github.com/starford/ansuz/internal/match"
)

const (
	welcomeMessage = `Hi! I answer employee questions from our knowledge base.

*How to use me:*
• Just type your question and I will look it up.
• Use /categories to browse the available topics.
• Use /help for more details.

*For example:*
• "How many vacation days do I get?"
• "What is the leave policy?"
• "How do I submit an expense report?"`

	helpMessage = `*Available commands:*

/start - welcome message and instructions
/help - this message
/categories - browse knowledge base categories
/stats - knowledge base statistics
/refresh - reload the knowledge base

*How to ask:*
Just type your question. I search for the closest known questions, so typos and different phrasings are fine.

*Tips:*
• Ask clear, specific questions.
• Use relevant keywords.
• If the answer is off, try rephrasing.`

	categoriesPrompt = "*Available categories:*\n\nTap a category to see its questions:"

	sourceUnavailableMessage  = "Sorry, the knowledge base is unavailable right now. Please try again later."
	internalErrorMessage      = "Sorry, something went wrong while searching. Please try again later."
	emptyKnowledgeBaseMessage = "The knowledge base is currently empty. Please try again later or contact support."
)

// maxAlternatives limits how many runner-up matches are listed.
const maxAlternatives = 3

const callbackCategoryPrefix = "cat:"

func formatAnswer(res match.Result, total int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Here is what I found* (similarity %.0f%%)\n\n", res.Score)
	fmt.Fprintf(&b, "*Question:* %s\n\n", res.Entry.Question)
	fmt.Fprintf(&b, "*Answer:* %s\n", res.Entry.Answer)
	if res.Entry.Category != "" {
		fmt.Fprintf(&b, "\n*Category:* %s\n", res.Entry.Category)
	}
	if total > 1 {
		fmt.Fprintf(&b, "\nFound %d related answers.", total)
	}
	return b.String()
}

func formatAlternatives(alts []match.Result) string {
	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}
	var b strings.Builder
	b.WriteString("*Other close matches:*\n\n")
	for i, alt := range alts {
		fmt.Fprintf(&b, "%d. %s _(similarity %.0f%%)_\n", i+1, alt.Entry.Question, alt.Score)
	}
	b.WriteString("\nAsk a more specific question to get the exact answer you need.")
	return b.String()
}

func formatNoMatch(question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I could not find a good answer for: \"%s\"\n\n", question)
	b.WriteString("*Try the following:*\n")
	b.WriteString("• Rephrase your question with different keywords.\n")
	b.WriteString("• Use more specific terms.\n")
	b.WriteString("• Browse the available topics with /categories.")
	return b.String()
}

func formatStats(stats *knowledge.Stats, unansweredCount int) string {
	var b strings.Builder
	b.WriteString("*Knowledge base statistics:*\n\n")
	fmt.Fprintf(&b, "• Questions: %d\n", stats.TotalQuestions)
	fmt.Fprintf(&b, "• Categories: %d\n", stats.Categories)
	fmt.Fprintf(&b, "• Skipped rows: %d\n", stats.SkippedRows)
	fmt.Fprintf(&b, "• Unanswered questions logged: %d\n", unansweredCount)
	if !stats.FetchedAt.IsZero() {
		fmt.Fprintf(&b, "• Last fetched: %s\n", stats.FetchedAt.Format("2006-01-02 15:04:05 MST"))
	}

	if len(stats.ByCategory) > 0 {
		b.WriteString("\n*By category:*\n")
		names := make([]string, 0, len(stats.ByCategory))
		for name := range stats.ByCategory {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "• %s: %d\n", name, stats.ByCategory[name])
		}
	}
	return b.String()
}

// formatCategoryQuestions lists up to ten questions of one category.
func formatCategoryQuestions(category string, entries []knowledge.Entry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("No questions found in category: %s", category)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Questions in %s:*\n\n", category)
	shown := entries
	if len(shown) > 10 {
		shown = shown[:10]
	}
	for _, e := range shown {
		fmt.Fprintf(&b, "• %s\n", e.Question)
	}
	if len(entries) > 10 {
		fmt.Fprintf(&b, "\n...and %d more questions.", len(entries)-10)
	}
	b.WriteString("\nJust type your question to get an answer!")
	return b.String()
}

// categoryKeyboard lays categories out two per row.
func categoryKeyboard(categories []string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(categories); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(categories[i], callbackCategoryPrefix+categories[i]),
		}
		if i+1 < len(categories) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(categories[i+1], callbackCategoryPrefix+categories[i+1]))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func categoryFromCallback(data string) (string, bool) {
	if !strings.HasPrefix(data, callbackCategoryPrefix) {
		return "", false
	}
	return strings.TrimPrefix(data, callbackCategoryPrefix), true
}
