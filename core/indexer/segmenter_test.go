package indexer

import (
	"context"
	"testing"

	"github.com/Malowking/parlrag/core/common"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	text := "Session Title: Пленарно заседание\n" +
		"\n" +
		"Председател (ID: Рая Назарян):\n" +
		"Откривам заседанието.\n" +
		"Има ли възражения?\n" +
		"\n" +
		"(ID: A) Hello world\n" +
		"(ID: B)\n" +
		"Goodbye\n"

	units := Segment(text)
	require.Len(t, units, 5)

	assert.Equal(t, Unit{Text: "Session Title: Пленарно заседание", Index: 0}, units[0])
	assert.Equal(t, "Рая Назарян", units[1].Speaker)
	assert.Equal(t, "Председател", units[1].Position)
	assert.Equal(t, "Откривам заседанието.", units[1].Text)
	assert.Equal(t, "Рая Назарян", units[2].Speaker)
	assert.Equal(t, Unit{Speaker: "A", Text: "Hello world", Index: 3}, units[3])
	assert.Equal(t, Unit{Speaker: "B", Text: "Goodbye", Index: 4}, units[4])
}

func TestSegment_InlineIDIsNotDelimiter(t *testing.T) {
	text := "(ID: A) Hello world\n" +
		"He referred to (ID: X) earlier\n" +
		"Министър (ПП-ДБ) (ID: Б):\n" +
		"See (ID: Y) and (ID: Z) too"

	units := Segment(text)
	require.Len(t, units, 3)

	assert.Equal(t, Unit{Speaker: "A", Text: "Hello world", Index: 0}, units[0])
	assert.Equal(t, Unit{Speaker: "A", Text: "He referred to (ID: X) earlier", Index: 1}, units[1])
	assert.Equal(t, Unit{Speaker: "Б", Position: "Министър (ПП-ДБ)", Text: "See (ID: Y) and (ID: Z) too", Index: 2}, units[2])
}

func TestSegment_NoDelimiters(t *testing.T) {
	units := Segment("first line\r\n\r\nsecond line")
	require.Len(t, units, 2)
	for _, u := range units {
		assert.Empty(t, u.Speaker)
	}
	assert.Equal(t, "second line", units[1].Text)
	assert.Empty(t, Segment("\n \n"))
}

func TestSegmentDocuments(t *testing.T) {
	docs := []*schema.Document{{
		Content:  "preamble\n(ID: A) Hello world\n(ID: B) Goodbye",
		MetaData: map[string]any{common.MetaSourceFile: "a.txt"},
	}}
	units, err := segmentDocuments(context.Background(), docs)
	require.NoError(t, err)
	require.Len(t, units, 3)

	_, hasSpeaker := units[0].MetaData[common.MetaSpeaker]
	assert.False(t, hasSpeaker)
	assert.Equal(t, "A", common.Speaker(units[1]))
	assert.Equal(t, "B", common.Speaker(units[2]))
	for i, u := range units {
		assert.Equal(t, "a.txt", u.MetaData[common.MetaSourceFile])
		assert.Equal(t, i, u.MetaData[common.MetaUnit])
	}
}
