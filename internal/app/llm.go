package app

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"legal_rag/internal/retrieval"
)

const systemPrompt = "तपाईं एक नेपाली कानुनी सहायक हुनुहुन्छ। दिइएको सन्दर्भको आधारमा मात्र नेपालीमा उत्तर दिनुहोस्।"

// NoContextAnswer is returned without calling the model when retrieval
// finds nothing.
const NoContextAnswer = "मलाई तपाईंको प्रश्नको उत्तर दिन पर्याप्त जानकारी छैन। " +
	"कृपया कानुनी दस्तावेज अपलोड गर्नुहोस् वा अधिक विशिष्ट प्रश्न सोध्नुहोस्।\n\n" +
	"(I don't have enough information to answer your question. " +
	"Please upload a legal document or ask a more specific question.)"

const (
	contextSeparator = "\n\n---\n\n"
	promptHead       = "तपाईं एक नेपाली कानुनी सहायक हुनुहुन्छ। तलको सन्दर्भको आधारमा मात्र प्रश्नको उत्तर दिनुहोस्।\n\nसन्दर्भ (Context):\n"
	promptTail       = `निर्देशन (Instructions):
1. माथि दिइएको सन्दर्भको आधारमा मात्र उत्तर दिनुहोस्
2. उत्तर नेपालीमा दिनुहोस्
3. यदि सन्दर्भमा जानकारी छैन भने "मलाई यो जानकारी उपलब्ध छैन" भन्नुहोस्
4. कुन स्रोतबाट जानकारी लिनुभयो त्यो उल्लेख गर्नुहोस् (जस्तै: [स्रोत 1] अनुसार...)
5. दिइएका स्रोतहरूका लेखाइमा त्रुटि हुनसक्ने सम्भावना भएकाले अन्त्यमा तपाईं आफ्नो उत्तर पनि अलगै लेखिदिनुहोस्।

उत्तर (Answer):`
)

// BuildPrompt numbers the chunks as [स्रोत N] blocks in rank order. When
// maxChars is positive the prompt stays within that many runes: the last
// block that fits partially is truncated and later ones are dropped. The
// first block is always kept, truncated if needed.
func BuildPrompt(question string, chunks []retrieval.RetrievedChunk, maxChars int) string {
	var buf strings.Builder
	question = strings.TrimSpace(question)
	questionPart := fmt.Sprintf("\n\nप्रश्न (Question): %s\n\n", question)

	fixed := utf8.RuneCountInString(promptHead) +
		utf8.RuneCountInString(questionPart) +
		utf8.RuneCountInString(promptTail)
	available := -1
	if maxChars > 0 {
		available = max(maxChars-fixed, 0)
	}

	buf.WriteString(promptHead)
	used := 0
	for i, c := range chunks {
		block := contextBlock(i+1, c)
		if i > 0 {
			block = contextSeparator + block
		}
		size := utf8.RuneCountInString(block)

		if available >= 0 && used+size > available {
			room := available - used
			if i > 0 && room <= utf8.RuneCountInString(contextSeparator)+20 {
				break
			}
			block = truncateRunes(block, max(room, 0))
			buf.WriteString(block)
			break
		}
		buf.WriteString(block)
		used += size
	}

	buf.WriteString(questionPart)
	buf.WriteString(promptTail)
	return buf.String()
}

func contextBlock(rank int, c retrieval.RetrievedChunk) string {
	header := fmt.Sprintf("[स्रोत %d]", rank)
	if c.Meta.HierarchicalTitle != "" {
		header += " " + c.Meta.HierarchicalTitle
	}
	return header + "\n" + strings.TrimSpace(c.Text)
}

func truncateRunes(s string, n int) string {
	const ellipsis = "..."
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= len(ellipsis) {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-len(ellipsis)]) + ellipsis
}
