package catalog

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"shackbot/internal/models"
)

func TestFormatMenuGroupsByCategory(t *testing.T) {
	out := FormatMenu(Fallback(time.Time{}))

	assert.True(t, strings.HasPrefix(out, "# Shake Shack Menu"))
	assert.Contains(t, out, "## Burgers")
	assert.Contains(t, out, "## Milkshakes")
	assert.Contains(t, out, "- **ShackBurger**: $6.99 (500 calories)")
	assert.Less(t, strings.Index(out, "## Burgers"), strings.Index(out, "## Fries"))
}

func TestMenuInfoListsEveryItem(t *testing.T) {
	cat := Fallback(time.Time{})
	out := MenuInfo(cat)
	for _, item := range cat.Items {
		assert.Contains(t, out, item.Name)
	}
	assert.Contains(t, out, "- Topo Chico: $3.49, 0 calories")
}

func TestDescribeItem(t *testing.T) {
	got := DescribeItem(models.MenuItem{Name: "Fries", Price: 3.99, Calories: 470})
	assert.Equal(t, "The Fries costs $3.99 and contains 470 calories.", got)
}
