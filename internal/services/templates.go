package services

import (
	"fmt"
	"math/rand"
)

// Greeting opens every new session.
const Greeting = "🏡 Welcome to HomeFinder AI! What kind of home are you looking for?"

// InputPlaceholder is the example prompt shown in the widget's input box.
const InputPlaceholder = "e.g.: Multi family homes in NY with 2 baths & 3 bedroom..."

// Chooser picks an index in [0, n). Production uses the package-level
// rand source; tests inject a deterministic one.
type Chooser func(n int) int

func NewRandomChooser() Chooser {
	return func(n int) int { return rand.Intn(n) }
}

var emptyAreaTemplates = []string{
	"Oh no! 😔 Your search criteria didn't return any homes.\n\n🔗 Is this your [Search URL](%s)?",
	"Hmm, it looks like your filters might be a little too strict! Zero results were found for the criteria I generated.\n\n🔗 Here is the [Search URL](%s) I attempted to use.",
	"I couldn't find any homes that match those exact filters.\n\n🔗 Please check your [Search URL](%s) to confirm the filters I used.",
	"I'm sorry, no properties were returned with your current requirements.\n\n🔗 Review the [Search URL](%s) to see the full set of filters applied.",
	"It seems the location and filters you provided returned no available homes. The region might be too small or the criteria too tight.\n\n🔗 Here is the [Search URL](%s) that resulted in zero matches.",
}

// EmptyAreaMessage returns one of the fixed no-results variants,
// referencing the search URL that came back empty.
func EmptyAreaMessage(choose Chooser, searchURL string) string {
	return fmt.Sprintf(emptyAreaTemplates[choose(len(emptyAreaTemplates))], searchURL)
}

// EmptyAreaVariants reports how many no-results templates exist.
func EmptyAreaVariants() int {
	return len(emptyAreaTemplates)
}

// ConfirmURLMessage asks the user to confirm a candidate search URL or
// paste a corrected one. When the URL decodes to a search term, the
// term is echoed back for context.
func ConfirmURLMessage(searchURL string) string {
	head := fmt.Sprintf("🔗 Is this your [Search URL](%s)?", searchURL)
	if term := SearchTermFromURL(searchURL); term != "" {
		head = fmt.Sprintf("🔗 Is this your [Search URL](%s) for %q?", searchURL, term)
	}
	return head + "\n\nIf not, modify the filters and paste the final URL here.\nOr simply reply with **yes** to confirm!"
}

// BadSearchURLMessage answers a pasted search URL whose filter state
// does not decode.
const BadSearchURLMessage = "Hmm, I couldn't read the filters in that URL. Please double-check the link and paste the full search URL again."

// ScrapeStatusMessage announces a started scrape run with its
// human-viewable link.
func ScrapeStatusMessage(runURL string) string {
	if runURL == "" {
		return "Great! I've started a home hunt for you.\n\nOnce the run finishes, I'll show you a brief visual analysis of your data."
	}
	return fmt.Sprintf("Great! I've started a home hunt for you. You can check it out [here](%s).\n\nOnce the run finishes, I'll show you a brief visual analysis of your data.", runURL)
}

// SkippedWarningMessage surfaces the per-batch data-quality warning.
// It is emitted at most once per analysis regardless of how many
// records were skipped.
func SkippedWarningMessage(skipped int) string {
	if skipped == 1 {
		return "Heads up: 1 listing could not be read and was left out of the analysis."
	}
	return fmt.Sprintf("Heads up: %d listings could not be read and were left out of the analysis.", skipped)
}

// AnalysisReadyMessage closes the scrape with the headline count.
func AnalysisReadyMessage(count int) string {
	return fmt.Sprintf("🔍 Done! I found %d homes matching your search. Your analysis is ready.", count)
}
