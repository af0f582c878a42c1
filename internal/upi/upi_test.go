package upi

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPayLink(t *testing.T) {
	link := BuildPayLink("coach@okhdfc", "Nutrikit Coaching", 90000, "INV-202608-12345-abc123")
	require.NotEmpty(t, link)

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "upi", u.Scheme)
	assert.Equal(t, "pay", u.Host)

	q := u.Query()
	assert.Equal(t, "coach@okhdfc", q.Get("pa"))
	assert.Equal(t, "Nutrikit Coaching", q.Get("pn"))
	assert.Equal(t, "900.00", q.Get("am"))
	assert.Equal(t, "INR", q.Get("cu"))
	assert.Equal(t, "INV-202608-12345-abc123", q.Get("tn"))
}

func TestBuildPayLinkMissingPayee(t *testing.T) {
	assert.Empty(t, BuildPayLink("", "Nutrikit Coaching", 90000, "ref"))
	assert.Empty(t, BuildPayLink("coach@okhdfc", "", 90000, "ref"))
	assert.Empty(t, BuildPayLink("  ", "  ", 90000, "ref"))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "2.50", FormatAmount(250))
	assert.Equal(t, "1234.99", FormatAmount(123499))
	assert.Equal(t, "-12.00", FormatAmount(-1200))
}
