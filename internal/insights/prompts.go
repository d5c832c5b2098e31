package insights

// Variant selects the persona/format contract for insight generation.
// The two variants are independent public operations and must keep their
// exact prompt wording; clients assert on the resulting format.
type Variant int

const (
	// VariantNotes produces exactly 3 numbered, first-person personal notes.
	VariantNotes Variant = iota
	// VariantSummary produces a direct summary without a header.
	VariantSummary
)

func (v Variant) String() string {
	switch v {
	case VariantNotes:
		return "notes"
	case VariantSummary:
		return "summary"
	default:
		return "unknown"
	}
}

const notesSystemPrompt = "You are taking quick personal notes while watching a video. Your notes must follow these strict rules:\n" +
	"1. Always use ONLY numbered format (1., 2., 3.) - never bullet points\n" +
	"2. Write in first-person, conversational style\n" +
	"3. Keep each point short and focused on one key idea\n" +
	"4. NEVER mention transcripts, speakers, videos, or content - write as if these are your own thoughts\n" +
	"5. Avoid any analytical language or academic tone\n" +
	"6. Focus on practical takeaways someone would actually write down"

const notesUserPrefix = "Write exactly 3 numbered personal notes (1., 2., 3.) I would jot down while watching. Be concise and direct:\n"

const summarySystemPrompt = "You are an assistant that summarizes video transcripts into concise insights. " +
	"Provide insights directly without prefixing with 'Key Insights:' or similar headers."

// maxTokens caps the model response for both variants.
const maxTokens = 200

type promptSpec struct {
	system string
	user   func(transcript string) string
}

var prompts = map[Variant]promptSpec{
	VariantNotes: {
		system: notesSystemPrompt,
		user:   func(t string) string { return notesUserPrefix + t },
	},
	VariantSummary: {
		system: summarySystemPrompt,
		user:   func(t string) string { return t },
	},
}
