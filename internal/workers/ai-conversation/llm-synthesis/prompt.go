// internal/workers/ai-conversation/llm-synthesis/prompt.go
package llmsynthesis

import (
	"fmt"
	"strings"

	"askora/internal/models"
)

const systemPrompt = `أنت ASKORA، مساعد ذكي يتحدث العربية بوضوح.
مهمتك: الإجابة بدقة وباختصار، اعتمادًا على "المصادر" إن وُجدت.
إن كانت المصادر غير كافية قل ذلك بصراحة واقترح ماذا يحتاج المستخدم.
لا تخترع حقائق.
إذا كانت هناك أرقام/أسعار/أخبار حديثة: نبّه أنها تتغير وتحتاج تحقق.`

func (h *Handler) buildPrompt(req models.CompletionRequest) string {
	var sources []string
	for i, s := range req.Sources {
		if i == h.config.MaxPromptSources {
			break
		}
		sources = append(sources, fmt.Sprintf("[#%d] %s\n%s", i+1, s.Title, s.Content))
	}

	intent := req.Intent
	if intent == "" {
		intent = "unknown"
	}
	context := req.Context
	if strings.TrimSpace(context) == "" {
		context = "(empty)"
	}
	sourcesText := strings.Join(sources, "\n\n")
	if sourcesText == "" {
		sourcesText = "(no sources)"
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "السؤال: %s\n", req.Question)
	fmt.Fprintf(&b, "النية: %s\n\n", intent)
	fmt.Fprintf(&b, "السياق السابق (إن وجد):\n%s\n\n", context)
	fmt.Fprintf(&b, "مصادر (قد تكون ملخصات):\n%s\n\n", sourcesText)
	b.WriteString("اكتب الإجابة النهائية بالعربية بصياغة طبيعية.\n")
	b.WriteString("- إذا استخدمت معلومة من مصدر، ضع في نهاية الجملة: [#رقم]\n")
	b.WriteString("- اجعل الإجابة مرتبة بنقاط عند الحاجة.")
	return b.String()
}
