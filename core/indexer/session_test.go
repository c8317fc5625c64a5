package indexer

import (
	"context"
	"strings"
	"testing"

	"github.com/Malowking/parlrag/core/errors"
	"github.com/cloudwego/eino/components/document/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionJSON = `{
  "parlSession": {"title": "Пленарно заседание", "date": "2024-09-04"},
  "statementCount": 2,
  "personCount": 2,
  "sessionStatements": [
    {"position": "Председател", "title": "Рая Назарян", "paragraphs": ["Откривам заседанието.", "Кворум има."]},
    {"title": "Иван Иванов", "paragraphs": ["Благодаря."]}
  ]
}`

func TestSessionParser_Render(t *testing.T) {
	docs, err := (&sessionParser{}).Parse(context.Background(), strings.NewReader(sessionJSON),
		parser.WithExtraMeta(map[string]any{"_source": "x.json"}))
	require.NoError(t, err)
	require.Len(t, docs, 1)

	want := "Session Title: Пленарно заседание\nDate: 2024-09-04\nTotal Statements: 2\nTotal Participants: 2\n\n" +
		"Председател (ID: Рая Назарян):\nОткривам заседанието. Кворум има.\n\n" +
		"Unknown Position (ID: Иван Иванов):\nБлагодаря.\n\n"
	assert.Equal(t, want, docs[0].Content)
	assert.Equal(t, "x.json", docs[0].MetaData["_source"])

	units := Segment(docs[0].Content)
	require.Len(t, units, 6)
	assert.Equal(t, "Рая Назарян", units[4].Speaker)
	assert.Equal(t, "Иван Иванов", units[5].Speaker)
	assert.Equal(t, "Unknown Position", units[5].Position)
}

func TestSessionParser_ArrayAndDefaults(t *testing.T) {
	docs, err := (&sessionParser{}).Parse(context.Background(), strings.NewReader(`[{"sessionStatements": []}]`))
	require.NoError(t, err)
	assert.Equal(t, "Session Title: No Title\nDate: No Date\nTotal Statements: 0\nTotal Participants: 0\n\n", docs[0].Content)

	docs, err = (&sessionParser{}).Parse(context.Background(), strings.NewReader(`[]`))
	require.NoError(t, err)
	assert.Contains(t, docs[0].Content, "No Title")
}

func TestParsers_RejectMalformedInput(t *testing.T) {
	_, err := (&sessionParser{}).Parse(context.Background(), strings.NewReader("{not json"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrDocumentParseFailed))

	_, err = (&textParser{}).Parse(context.Background(), strings.NewReader("\xff\xfe bad"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrDocumentParseFailed))
}
