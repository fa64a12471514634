package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/net/html"
)

func TestObserveValidation(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<p>x</p>`)
	obs := doc.NewObserver(func([]Record, *Observer) {})

	assert.Error(t, obs.Observe(nil, ObserveOptions{ChildList: true}))
	assert.Error(t, obs.Observe(doc.Body(), ObserveOptions{Subtree: true}))
	assert.NoError(t, obs.Observe(doc.Body(), ObserveOptions{CharacterData: true}))
}

func TestObserverScope(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		opts    ObserveOptions
		wantLen int
	}{
		{"direct children only", ObserveOptions{ChildList: true}, 0},
		{"subtree", ObserveOptions{ChildList: true, Subtree: true}, 1},
		{"character data only", ObserveOptions{CharacterData: true, Subtree: true}, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := mustParse(t, `<div><p>x</p></div>`)
			p := mustQuery(t, doc, "p")[0]

			var got []Record
			obs := doc.NewObserver(func(r []Record, _ *Observer) { got = append(got, r...) })
			require.NoError(t, obs.Observe(doc.Body(), tc.opts))

			require.NoError(t, doc.AppendChild(p, &html.Node{Type: html.TextNode, Data: "y"}))
			require.NoError(t, doc.Settle())
			assert.Len(t, got, tc.wantLen)
		})
	}
}

func TestCharacterDataRecord(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<p>old</p>`)
	p := mustQuery(t, doc, "p")[0]

	var got []Record
	obs := doc.NewObserver(func(r []Record, _ *Observer) { got = append(got, r...) })
	require.NoError(t, obs.Observe(doc.Body(), ObserveOptions{CharacterData: true, Subtree: true}))

	require.NoError(t, doc.SetText(p.FirstChild, "new"))
	require.NoError(t, doc.SetText(p.FirstChild, "new"))
	require.NoError(t, doc.Settle())

	require.Len(t, got, 1)
	assert.Equal(t, CharacterData, got[0].Type)
	assert.Equal(t, "old", got[0].OldValue)
	assert.Error(t, doc.SetText(p, "x"))
}

func TestRecordsBatchedPerRound(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<div></div>`)
	div := mustQuery(t, doc, "div")[0]

	var sizes []int
	obs := doc.NewObserver(func(r []Record, _ *Observer) { sizes = append(sizes, len(r)) })
	require.NoError(t, obs.Observe(doc.Body(), ObserveOptions{ChildList: true, Subtree: true}))

	for i := 0; i < 3; i++ {
		require.NoError(t, doc.AppendChild(div, &html.Node{Type: html.TextNode, Data: "x"}))
	}
	require.NoError(t, doc.Settle())
	assert.Equal(t, []int{3}, sizes)
}

func TestCallbackMutationsGoToNextRound(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<div></div>`)
	div := mustQuery(t, doc, "div")[0]

	rounds := 0
	obs := doc.NewObserver(func(r []Record, _ *Observer) {
		rounds++
		if rounds == 1 {
			require.NoError(t, doc.AppendChild(div, &html.Node{Type: html.TextNode, Data: "echo"}))
			require.NoError(t, doc.Settle(), "nested settle is a no-op")
		}
	})
	require.NoError(t, obs.Observe(doc.Body(), ObserveOptions{ChildList: true, Subtree: true}))

	require.NoError(t, doc.AppendChild(div, &html.Node{Type: html.TextNode, Data: "x"}))
	require.NoError(t, doc.Settle())
	assert.Equal(t, 2, rounds)
}

func TestSettleLimit(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<div></div>`, WithSettleLimit(5))
	div := mustQuery(t, doc, "div")[0]

	obs := doc.NewObserver(func([]Record, *Observer) {
		_ = doc.AppendChild(div, &html.Node{Type: html.TextNode, Data: "again"})
	})
	require.NoError(t, obs.Observe(doc.Body(), ObserveOptions{ChildList: true, Subtree: true}))

	require.NoError(t, doc.AppendChild(div, &html.Node{Type: html.TextNode, Data: "x"}))
	err := doc.Settle()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSettleLimit))
}

func TestDisconnectDropsQueue(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<div></div>`)
	div := mustQuery(t, doc, "div")[0]

	calls := 0
	obs := doc.NewObserver(func([]Record, *Observer) { calls++ })
	require.NoError(t, obs.Observe(doc.Body(), ObserveOptions{ChildList: true, Subtree: true}))

	require.NoError(t, doc.AppendChild(div, &html.Node{Type: html.TextNode, Data: "x"}))
	obs.Disconnect()
	require.NoError(t, doc.AppendChild(div, &html.Node{Type: html.TextNode, Data: "y"}))
	require.NoError(t, doc.Settle())
	assert.Zero(t, calls)
}

func TestTakeRecords(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<div></div>`)
	div := mustQuery(t, doc, "div")[0]
	obs := doc.NewObserver(func([]Record, *Observer) { t.Fatal("records were taken") })
	require.NoError(t, obs.Observe(div, ObserveOptions{ChildList: true}))

	require.NoError(t, doc.AppendChild(div, &html.Node{Type: html.TextNode, Data: "x"}))
	assert.Len(t, obs.TakeRecords(), 1)
	require.NoError(t, doc.Settle())
}

func TestReadyFiresOnce(t *testing.T) {
	t.Parallel()
	doc := mustParse(t, `<p>x</p>`)
	var order []int
	doc.OnReady(func(*Document) { order = append(order, 1) })
	doc.OnReady(func(*Document) { order = append(order, 2) })

	assert.False(t, doc.IsReady())
	require.NoError(t, doc.Ready())
	require.NoError(t, doc.Ready())
	doc.OnReady(func(*Document) { order = append(order, 3) })

	assert.True(t, doc.IsReady())
	assert.Equal(t, []int{1, 2}, order)
}
