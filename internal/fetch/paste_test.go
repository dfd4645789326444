package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPaste(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{
			"title": " Regional Team ",
			"author": "Alice",
			"notes": "Top cut",
			"paste": "Flutter Mane @ Booster Energy\r\n- Moonblast\r\n\r\nIncineroar (M) @ Safety Goggles\r\n- Fake Out\r\n"
		}`))
	}))
	defer srv.Close()

	paste, err := testClient().FetchPaste(context.Background(), srv.URL+"/abc123def/")
	require.NoError(t, err)

	assert.Equal(t, "/abc123def/json", gotPath)
	assert.Equal(t, srv.URL+"/abc123def", paste.URL)
	assert.Equal(t, "Regional Team", paste.Title)
	assert.Equal(t, "Alice", paste.Author)
	assert.Equal(t, []string{"Flutter Mane", "Incineroar"}, paste.Team.Species())
}

func TestCanonicalPasteURL(t *testing.T) {
	got, err := CanonicalPasteURL("https://pokepast.es/abc/json?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://pokepast.es/abc", got)

	_, err = CanonicalPasteURL("https://pokepast.es/")
	assert.ErrorIs(t, err, ErrInvalidURL)
}
