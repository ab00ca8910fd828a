package openai

import (
	"encoding/json"

	"github.com/aretw0/jarvis/pkg/domain"
	sdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// MissingResultText stands in for a tool result absent from the log.
const MissingResultText = "No result was recorded for this call."

// toMessages converts the turn log, moving every tool result directly after
// the assistant turn that requested it. Notes and user turns recorded between
// a call and its result (an approval exchange) follow the results. A call
// without a result gets a placeholder; a result without a call is dropped.
func toMessages(turns []domain.Turn) []sdk.ChatCompletionMessageParamUnion {
	results := make(map[string]domain.Turn)
	for _, t := range turns {
		if t.Kind == domain.TurnToolResult && t.InvocationID != "" {
			results[t.InvocationID] = t
		}
	}

	var out []sdk.ChatCompletionMessageParamUnion
	for _, t := range turns {
		switch t.Kind {
		case domain.TurnUser:
			out = append(out, sdk.UserMessage(t.Text))
		case domain.TurnSystem:
			out = append(out, sdk.SystemMessage(t.Text))
		case domain.TurnAssistant:
			out = append(out, assistantMessage(t))
			for _, inv := range t.Invocations {
				text := MissingResultText
				if r, ok := results[inv.ID]; ok {
					text = r.Text
				}
				out = append(out, sdk.ToolMessage(text, inv.ID))
			}
		case domain.TurnToolResult:
			// Emitted with its assistant turn, or orphaned by history trimming.
		}
	}
	return out
}

// assistantMessage omits the content of a turn that only calls tools.
func assistantMessage(t domain.Turn) sdk.ChatCompletionMessageParamUnion {
	if !t.HasInvocations() {
		return sdk.AssistantMessage(t.Text)
	}
	msg := sdk.ChatCompletionAssistantMessageParam{}
	if t.Text != "" {
		msg.Content.OfString = sdk.String(t.Text)
	}
	for _, inv := range t.Invocations {
		msg.ToolCalls = append(msg.ToolCalls, sdk.ChatCompletionMessageToolCallParam{
			ID: inv.ID,
			Function: sdk.ChatCompletionMessageToolCallFunctionParam{
				Name:      inv.Name,
				Arguments: encodeArgs(inv.Args),
			},
		})
	}
	return sdk.ChatCompletionMessageParamUnion{OfAssistant: &msg}
}

func toTools(descriptors []domain.CapabilityDescriptor) []sdk.ChatCompletionToolParam {
	tools := make([]sdk.ChatCompletionToolParam, len(descriptors))
	for i, d := range descriptors {
		params := d.Parameters
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		fn := shared.FunctionDefinitionParam{
			Name:       d.Name,
			Parameters: shared.FunctionParameters(params),
		}
		if d.Description != "" {
			fn.Description = sdk.String(d.Description)
		}
		tools[i] = sdk.ChatCompletionToolParam{Function: fn}
	}
	return tools
}

func encodeArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	b, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(b)
}
