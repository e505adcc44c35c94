package catalog

import (
	"fmt"
	"strings"

	"shackbot/internal/models"
)

// FormatMenu renders the snapshot for display, grouped by category
func FormatMenu(cat models.Catalog) string {
	var b strings.Builder
	b.WriteString("# Shake Shack Menu\n\n")
	for _, category := range cat.Categories() {
		fmt.Fprintf(&b, "## %s\n\n", category)
		for _, item := range cat.ByCategory(category) {
			fmt.Fprintf(&b, "- **%s**: %s (%d calories)\n",
				item.Name, models.FormatCents(item.PriceCents()), item.Calories)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// MenuInfo renders the snapshot as plain text for LLM prompts
func MenuInfo(cat models.Catalog) string {
	var b strings.Builder
	b.WriteString("Shake Shack Menu Information:\n")
	for _, category := range cat.Categories() {
		fmt.Fprintf(&b, "\n%s:\n", category)
		for _, item := range cat.ByCategory(category) {
			fmt.Fprintf(&b, "- %s: %s, %d calories\n",
				item.Name, models.FormatCents(item.PriceCents()), item.Calories)
		}
	}
	return b.String()
}

// DescribeItem is the one-line answer to a price question
func DescribeItem(item models.MenuItem) string {
	return fmt.Sprintf("The %s costs %s and contains %d calories.",
		item.Name, models.FormatCents(item.PriceCents()), item.Calories)
}
