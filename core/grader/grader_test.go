package grader

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Malowking/parlrag/core/common"
	"github.com/Malowking/parlrag/core/errors"
	"github.com/Malowking/parlrag/internal/testkit"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordModel 问题之前的文档部分包含 keyword 时判定相关
func keywordModel(keyword string) *testkit.ScriptedModel {
	return testkit.NewScriptedModel(func(_ context.Context, input []*schema.Message, tools []*schema.ToolInfo) (*schema.Message, error) {
		if !testkit.HasTool(tools, GradeToolName) {
			return nil, fmt.Errorf("grade tool not bound")
		}
		document, _, _ := strings.Cut(testkit.LastUserText(input), "Here is the user question:")
		score := "no"
		if strings.Contains(document, keyword) {
			score = "yes"
		}
		return testkit.ToolCall("call_1", GradeToolName, fmt.Sprintf(`{"binaryScore":%q,"reason":"keyword check"}`, score)), nil
	})
}

func docs(speakerText ...string) []*schema.Document {
	var out []*schema.Document
	for i := 0; i+1 < len(speakerText); i += 2 {
		out = append(out, &schema.Document{
			ID:       fmt.Sprintf("d%d", i/2),
			Content:  speakerText[i+1],
			MetaData: map[string]any{common.MetaSpeaker: speakerText[i]},
		})
	}
	return out
}

func TestGrade_EmptyMakesNoCalls(t *testing.T) {
	m := keywordModel("Hello")
	gr, err := NewGrader(m, false, 1)
	require.NoError(t, err)

	out, decisions, err := gr.Grade(context.Background(), nil, "Who said hello?")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Empty(t, decisions)
	assert.Zero(t, m.Calls())
}

func TestGrade_IsOrderedSubsequence(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			m := keywordModel("бюджет")
			gr, err := NewGrader(m, true, concurrency)
			require.NoError(t, err)

			input := docs(
				"A", "бюджет за 2025",
				"B", "Goodbye",
				"C", "още за бюджет",
				"D", "нещо друго",
				"E", "бюджет отново",
			)
			out, decisions, err := gr.Grade(context.Background(), input, "Какво казаха за бюджета?")
			require.NoError(t, err)
			require.Len(t, decisions, 5)
			assert.Equal(t, 5, m.Calls())

			var ids []string
			for _, d := range out {
				ids = append(ids, d.ID)
			}
			assert.Equal(t, []string{"d0", "d2", "d4"}, ids)
			assert.Equal(t, "keyword check", decisions[1].Reason)
			assert.False(t, decisions[1].Relevant)
		})
	}
}

func TestGrade_PromptCarriesSpeaker(t *testing.T) {
	m := keywordModel("statement by: A")
	gr, err := NewGrader(m, false, 1)
	require.NoError(t, err)

	out, _, err := gr.Grade(context.Background(), docs("A", "Hello world", "B", "Goodbye"), "Who said hello?")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "A", common.Speaker(out[0]))
}

func TestGrade_StructuredOutputFailure(t *testing.T) {
	m := testkit.Replies(schema.AssistantMessage("I think it is relevant", nil))
	gr, err := NewGrader(m, false, 1)
	require.NoError(t, err)

	_, _, err = gr.Grade(context.Background(), docs("A", "Hello world"), "Who said hello?")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrStructuredOutput))
}

func TestParseDecision(t *testing.T) {
	d, err := parseDecision(schema.AssistantMessage("```json\n{\"binaryScore\": \"YES\"}\n```", nil))
	require.NoError(t, err)
	assert.True(t, d.Relevant)

	_, err = parseDecision(testkit.ToolCall("c", GradeToolName, `{"binaryScore":"maybe"}`))
	assert.True(t, errors.HasCode(err, errors.ErrStructuredOutput))

	d, err = parseDecision(testkit.ToolCall("c", GradeToolName, `{"binaryScore":"no","reason":"off topic"}`))
	require.NoError(t, err)
	assert.Equal(t, Decision{Relevant: false, Reason: "off topic"}, d)
}
