package anthropic

import (
	sdkanthropic "github.com/anthropics/anthropic-sdk-go"

	"github.com/hostfolk/porter/internal/provider"
)

// convertRequest transforms a generation request into Messages API
// parameters. The leading system message maps to the dedicated System
// field; the Messages API does not accept inline system turns.
func convertRequest(req provider.Request, cfg Config) sdkanthropic.MessageNewParams {
	system, messages := req.SplitSystem()

	params := sdkanthropic.MessageNewParams{
		Model:    sdkanthropic.Model(cfg.Model),
		Messages: convertMessages(messages),
	}
	if system != "" {
		params.System = []sdkanthropic.TextBlockParam{{Text: system}}
	}

	params.MaxTokens = int64(cfg.MaxTokens)
	if req.MaxTokens > 0 {
		params.MaxTokens = int64(req.MaxTokens)
	}
	if req.Temperature != nil {
		params.Temperature = sdkanthropic.Float(*req.Temperature)
	}

	return params
}

func convertMessages(msgs []provider.Message) []sdkanthropic.MessageParam {
	result := make([]sdkanthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case provider.RoleAssistant:
			result = append(result, sdkanthropic.NewAssistantMessage(
				sdkanthropic.NewTextBlock(m.Content),
			))
		case provider.RoleUser:
			result = append(result, sdkanthropic.NewUserMessage(
				sdkanthropic.NewTextBlock(m.Content),
			))
		}
	}
	return result
}

// extractText joins the text blocks of a response.
func extractText(msg *sdkanthropic.Message) string {
	var text string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(sdkanthropic.TextBlock); ok {
			if text != "" {
				text += "\n"
			}
			text += tb.Text
		}
	}
	return text
}
