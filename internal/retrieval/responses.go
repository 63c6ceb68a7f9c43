package retrieval

import (
	"fmt"
	"hash/fnv"
	"strings"
)

const (
	greetingResponse = "Hello! I'm Locket, your AI document assistant. I can help you find information in your uploaded documents, answer questions, and have a conversation about your content. What would you like to know?"

	aboutResponse = "I'm Locket, an AI-powered document retrieval assistant. I help you find and understand information from your uploaded documents.\n\n" +
		"Here's what I can do:\n" +
		"• Answer questions based on your documents\n" +
		"• Search through PDFs, Word docs, and text files\n" +
		"• Provide cited sources for my answers\n" +
		"• Remember our conversation for context\n" +
		"• Help you discover insights from your content\n\n" +
		"Just ask me anything about your documents, and I'll search through them to find the most relevant information!"

	smallTalkFallback = "I'm here to help! Ask me anything about your documents."

	noDocumentsQuestion = "I searched through your documents but couldn't find specific information about that topic.\n\n" +
		"Here are some suggestions:\n" +
		"• Try rephrasing your question with different keywords\n" +
		"• Check if you have uploaded documents related to this topic\n" +
		"• Make sure the documents containing this information are uploaded and processed\n\n" +
		"I'm here to help with any information in your documents. What else would you like to know?"

	noDocumentsStatement = "I don't have any documents that contain information about that yet. " +
		"If you upload documents related to this topic, I'll be able to help answer your questions!\n\n" +
		"In the meantime, feel free to ask me about anything in your currently uploaded documents."

	// strongMatchScore marks a best result worth a confident introduction.
	strongMatchScore = 0.5
	// maxQuotedDocuments bounds the excerpts quoted in one response.
	maxQuotedDocuments = 3
)

// smallTalkReplies is checked in order; the first key contained in the
// message wins.
var smallTalkReplies = []struct{ key, reply string }{
	{"thank", "You're welcome! Feel free to ask me anything else about your documents."},
	{"bye", "Goodbye! Come back anytime you need help with your documents."},
	{"how are you", "I'm doing great, thanks for asking! Ready to help you with your documents. What would you like to know?"},
	{"nice", "Glad I could help! Let me know if you have any other questions."},
	{"okay", "Great! Is there anything else you'd like to know?"},
}

var strongIntros = []string{
	"Great question! I found some very relevant information.",
	"I can help with that! Here's what I found in your documents.",
	"Perfect! I have good information about that.",
}

var questionWords = map[string]bool{
	"how": true, "what": true, "why": true, "when": true, "where": true,
	"who": true, "which": true, "explain": true, "describe": true,
}

// CannedResponse returns the fixed reply for a non-document intent.
func CannedResponse(intent Intent, message string) string {
	switch intent {
	case IntentGreeting:
		return greetingResponse
	case IntentAboutAssistant:
		return aboutResponse
	case IntentSmallTalk:
		lower := strings.ToLower(message)
		for _, r := range smallTalkReplies {
			if strings.Contains(lower, r.key) {
				return r.reply
			}
		}
		return smallTalkFallback
	default:
		return ""
	}
}

// NoDocumentsResponse is returned when nothing scores above the usability
// threshold. Questions get suggestions for rephrasing.
func NoDocumentsResponse(query string) string {
	if isQuestion(query) {
		return noDocumentsQuestion
	}
	return noDocumentsStatement
}

func isQuestion(query string) bool {
	q := strings.TrimSpace(query)
	if strings.HasSuffix(q, "?") {
		return true
	}
	tokens := tokenize(q)
	if len(tokens) == 0 {
		return false
	}
	if questionWords[tokens[0]] {
		return true
	}
	return len(tokens) > 1 && tokens[0] == "tell" && tokens[1] == "me"
}

// ContextualResponse quotes the excerpts of up to three citations. The
// citations must be sorted by relevance, best first, and bestScore is the
// total of the first one.
func ContextualResponse(query string, citations []Citation, bestScore float64) string {
	if len(citations) == 0 {
		return NoDocumentsResponse(query)
	}

	count := len(citations)
	strong := bestScore > strongMatchScore

	var parts []string
	switch {
	case strong:
		parts = append(parts, introFor(query)+"\n")
	case count == 1:
		parts = append(parts, fmt.Sprintf("I found this in '%s':\n", citations[0].Filename))
	default:
		parts = append(parts, fmt.Sprintf("I found information in %d documents that might help:\n", count))
	}

	for _, c := range citations[:min(count, maxQuotedDocuments)] {
		excerpt := strings.TrimSpace(c.Excerpt)
		if excerpt == "" {
			continue
		}
		if count > 1 {
			parts = append(parts, fmt.Sprintf("\n**From %s:**\n%s\n", c.Filename, excerpt))
		} else {
			parts = append(parts, "\n"+excerpt+"\n")
		}
	}

	switch {
	case count > maxQuotedDocuments:
		parts = append(parts, fmt.Sprintf("\n[+] I also found %d other document(s) with related information. Let me know if you'd like more details!", count-maxQuotedDocuments))
	case strong:
		parts = append(parts, "\n\nDoes this answer your question? Feel free to ask for clarification or more details!")
	default:
		parts = append(parts, "\n\nThis is what I found that's most relevant. If you need different information, try rephrasing your question!")
	}
	return strings.Join(parts, "\n")
}

// introFor picks an introduction by hashing the query so the same query
// always reads the same.
func introFor(query string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(query))
	return strongIntros[h.Sum32()%uint32(len(strongIntros))]
}
