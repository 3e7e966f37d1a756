package inbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullReply(t *testing.T) {
	body := `- shipped the billing fix
- reviewed Ana's PR
+ start the dashboard migration
* still waiting on the API key

Cheers,
Bruno
`
	r, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"shipped the billing fix", "reviewed Ana's PR"}, r.Done)
	assert.Equal(t, []string{"start the dashboard migration"}, r.WillDo)
	assert.Equal(t, []string{"still waiting on the API key"}, r.Blockers)
}

func TestParseStopsAtQuotedReply(t *testing.T) {
	body := `- fixed the flaky test

On Mon, Aug 24, 2026 at 9:00 AM Digestus Reminder <team@example.com> wrote:
> Reply to this email with your update.
> + old todo from yesterday
`
	r, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"fixed the flaky test"}, r.Done)
	assert.Empty(t, r.WillDo)
}

func TestParseStopsAtQuoteMarkers(t *testing.T) {
	body := "- did a thing\n> + quoted todo\n+ after the quote"
	r, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"did a thing"}, r.Done)
	assert.Empty(t, r.WillDo)
}

func TestParsePreservesOrder(t *testing.T) {
	body := "+ b\n+ a\n+ c"
	r, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, r.WillDo)
}

func TestParseIgnoresBareMarkers(t *testing.T) {
	body := "-\n- real item\n+   "
	r, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"real item"}, r.Done)
	assert.Empty(t, r.WillDo)
}

func TestParseWrongFormat(t *testing.T) {
	_, err := Parse("hey! today I did lots of stuff, no blockers")
	assert.ErrorIs(t, err, ErrWrongFormat)

	_, err = Parse("")
	assert.ErrorIs(t, err, ErrWrongFormat)
}
