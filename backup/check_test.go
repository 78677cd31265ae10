package backup

import (
	"testing"

	"libmvt/core"
	"libmvt/threat"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckIndicators(t *testing.T) {
	data := buildContainer(t, containerOpts{version: 5, compressed: true, archive: testArchive(t)})
	records, err := Parse(data, "")
	require.NoError(t, err)

	b := threat.NewBuilder()
	b.Add(core.CategoryDomain, "evil.example")
	b.Add(core.CategoryURL, "https://mms.example/p")
	ind, err := b.Build()
	require.NoError(t, err)

	dets := CheckIndicators(records, ind)

	var domains, urls []string
	for _, d := range dets {
		switch d.Category {
		case core.CategoryDomain:
			domains = append(domains, d.Observed)
		case core.CategoryURL:
			urls = append(urls, d.Observed)
		}
	}
	assert.Equal(t, []string{"http://evil.example/x", "HTTPS://Evil.Example/a?b=c"}, domains)
	assert.Equal(t, []string{"https://mms.example/p"}, urls)
}

func TestCheckIndicators_NilMatcher(t *testing.T) {
	records := []core.SmsRecord{{"links": []string{"http://evil.example"}}}
	assert.Empty(t, CheckIndicators(records, nil))
}
