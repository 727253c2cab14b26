package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/listenupapp/catalog-resolver/internal/domain"
)

func TestExtract_Formats(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Entities
	}{
		{
			name: "plain labels",
			text: "Publisher: Macmillan\nBinder: Riviere & Son\nAuthor: Lewis Carroll",
			want: Entities{Author: "Lewis Carroll", Publisher: "Macmillan", Binder: "Riviere & Son"},
		},
		{
			name: "markdown emphasis inside colon",
			text: "**Publisher:** Chatto & Windus\n**Binder:** Zaehnsdorf",
			want: Entities{Publisher: "Chatto & Windus", Binder: "Zaehnsdorf"},
		},
		{
			name: "markdown emphasis outside colon",
			text: "__Binder__: Sangorski & Sutcliffe",
			want: Entities{Binder: "Sangorski & Sutcliffe"},
		},
		{
			name: "list markers",
			text: "- Author: George Eliot\n* Publisher: Blackwood\n1. Bound by: Bayntun",
			want: Entities{Author: "George Eliot", Publisher: "Blackwood", Binder: "Bayntun"},
		},
		{
			name: "case insensitive labels and synonyms",
			text: "PUBLISHED BY: Smith, Elder\nbindery: Birdsall\nWritten by: Charlotte Bronte",
			want: Entities{Author: "Charlotte Bronte", Publisher: "Smith, Elder", Binder: "Birdsall"},
		},
		{
			name: "trailing punctuation and quotes",
			text: `Publisher: "Macmillan & Co.".` + "\r\nBinder: Riviere;",
			want: Entities{Publisher: "Macmillan & Co", Binder: "Riviere"},
		},
		{
			name: "labels mid sentence ignored",
			text: "The publisher: probably Macmillan, judging by the spine.",
			want: Entities{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.text))
		})
	}
}

func TestExtract_FirstUsableValueWins(t *testing.T) {
	text := `## Binding
Binder: Unknown
Binder: Riviere & Son
Binder: Zaehnsdorf
Publisher: N/A
Publisher:
Publisher: none`

	got := Extract(text)
	assert.Equal(t, "Riviere & Son", got.Binder)
	assert.Empty(t, got.Publisher)
	assert.False(t, got.Empty())
}

func TestExtract_Empty(t *testing.T) {
	assert.True(t, Extract("").Empty())
	assert.True(t, Extract("A handsome copy in full calf.\nSpine gilt.").Empty())
}

func TestEntities_Get(t *testing.T) {
	e := Entities{Author: "a", Publisher: "p", Binder: "b"}

	assert.Equal(t, "a", e.Get(domain.EntityAuthor))
	assert.Equal(t, "p", e.Get(domain.EntityPublisher))
	assert.Equal(t, "b", e.Get(domain.EntityBinder))
	assert.Empty(t, e.Get("printer"))
}
