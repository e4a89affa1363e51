package extract

import "fmt"

// systemPrompt frames the model's role for every summary request.
const systemPrompt = "You are a careful analyst that extracts key information from video transcripts. Respond in clean, well-structured Markdown only."

// summaryPromptTemplate asks for the fixed section layout the markdown
// writers expect downstream.
const summaryPromptTemplate = `You are analyzing a transcript from a video. Extract the most relevant and important information.

Provide:

1. **Executive Summary** (2-3 sentences): a high-level overview of the main topic and conclusion
2. **Key Points** (bullet points): the main ideas and arguments presented
3. **Important Quotes** (with timestamps if available): notable or impactful statements
4. **Main Topics** (bullet points): the key themes discussed
5. **Actionable Insights** (numbered list): practical takeaways or recommendations

Video Metadata:
- Title: %s
- Author: %s
- Duration: %s

Transcript:
%s
`

func buildSummaryPrompt(req SummaryRequest) string {
	title := req.Title
	if title == "" {
		title = "Unknown"
	}
	author := req.Author
	if author == "" {
		author = "Unknown"
	}
	return fmt.Sprintf(summaryPromptTemplate, title, author, formatDuration(req.DurationSeconds), req.Transcript)
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "unknown"
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
