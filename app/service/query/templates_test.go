package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeighbourhoodTemplateEmbedsFocus(t *testing.T) {
	query := NeighbourhoodTemplate("http://example.org/hearing/Tinnitus")

	assert.Contains(t, query, "<http://example.org/hearing/Tinnitus>")
	assert.Contains(t, query, "LIMIT 100")
	assert.Empty(t, NeighbourhoodTemplate(""))
}

func TestMultihopTemplateRequiresBothEndpoints(t *testing.T) {
	assert.Empty(t, MultihopTemplate("http://example.org/a", ""))
	assert.Empty(t, MultihopTemplate("", "http://example.org/b"))

	query := MultihopTemplate("http://example.org/a", "http://example.org/b")
	assert.Contains(t, query, "<http://example.org/a>")
	assert.Contains(t, query, "<http://example.org/b>")
	assert.Contains(t, query, "?intermediate1")
	assert.Contains(t, query, "?intermediate2")
	assert.Equal(t, 2, strings.Count(query, "UNION"))
}

func TestFederationTemplateUsesSameAs(t *testing.T) {
	query := FederationTemplate("http://example.org/a", "http://example.org/b")

	assert.Contains(t, query, "owl:sameAs")
	assert.Contains(t, query, "<http://example.org/a>")
	assert.Contains(t, query, "<http://example.org/b>")
}

func TestValidationTemplateFilterBody(t *testing.T) {
	query := ValidationTemplate("http://example.org/hearing/Tinnitus", "http://example.org/hearing/SoundTherapy")

	filterStart := strings.Index(query, "FILTER(")
	require.GreaterOrEqual(t, filterStart, 0)
	filterEnd := strings.Index(query[filterStart:], "))")
	require.Greater(t, filterEnd, 0)
	filterBody := query[filterStart : filterStart+filterEnd]

	// Predicate allowlist only; the asserted object lives in the BIND, not
	// the filter.
	for _, predicate := range validationPredicates {
		assert.Contains(t, filterBody, predicate)
	}
	assert.NotContains(t, filterBody, "SoundTherapy")
	assert.Contains(t, query, "(?target = <http://example.org/hearing/SoundTherapy>) AS ?matchesAssertion")
}

func TestTemplateDispatch(t *testing.T) {
	source := "http://example.org/a"
	target := "http://example.org/b"

	assert.NotEmpty(t, Template("scenario_1_neighbourhood", source, ""))
	assert.NotEmpty(t, Template("scenario_2_multihop", source, target))
	assert.NotEmpty(t, Template("scenario_3_federation", source, target))
	assert.NotEmpty(t, Template("scenario_4_validation", source, target))
	assert.Empty(t, Template("scenario_unknown", source, target))
}
