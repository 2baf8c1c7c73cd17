package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/minicart/internal/cart"
)

// renderMain composes header, cart panel and footer.
func (m Model) renderMain() string {
	width := min(m.width, LayoutMaxWidth)
	sections := []string{m.renderHeader(width)}

	if m.sync.IsOpen {
		sections = append(sections, m.renderCart(width))
	} else {
		sections = append(sections, m.renderSummary(width))
	}

	if m.sync.LastError != nil {
		styles := m.theme.Styles()
		msg := "Last sync failed: " + m.sync.LastError.Error()
		sections = append(sections, styles.DangerText.Render(truncate(msg, width)))
	}

	sections = append(sections, m.renderFooter(width))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// phaseLabel names the badge shown in the header.
func (m Model) phaseLabel() string {
	switch {
	case m.sync.IsOffline():
		return "offline"
	case m.sync.Warm:
		return "cached"
	default:
		return m.sync.Phase().String()
	}
}

func (m Model) renderHeader(width int) string {
	styles := m.theme.Styles()

	left := styles.AccentText.Bold(true).Render("minicart") + " " +
		styles.PhaseStyle(m.phaseLabel()).Render(m.phaseLabel())
	if m.sync.IsLoading {
		left += " " + m.spinner.View()
	}

	right := ""
	if !m.sync.LastUpdated.IsZero() {
		right = styles.MutedText.Render("updated " + humanizeDuration(m.now.Sub(m.sync.LastUpdated)))
	}

	gap := max(width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	return styles.Header.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}

// renderSummary is the collapsed view: item count and total only.
func (m Model) renderSummary(width int) string {
	styles := m.theme.Styles()
	snap := m.sync.Snapshot

	var line string
	switch {
	case snap == nil:
		line = styles.MutedText.Render("Loading cart...")
	case m.sync.IsEmpty:
		line = styles.MutedText.Render("Your cart is empty")
	default:
		line = styles.Text.Render(plural(snap.ItemCount, "item")) +
			styles.FaintText.Render(" · ") +
			styles.Text.Bold(true).Render(snap.Totals.FormattedTotalPrice)
	}
	line += styles.FaintText.Render("  (o to open)")
	return styles.Panel.Width(width - 2).Render(line)
}

// renderCart is the expanded view with every line and the totals.
func (m Model) renderCart(width int) string {
	styles := m.theme.Styles()
	inner := width - 4
	snap := m.sync.Snapshot

	if snap == nil {
		return styles.Panel.Width(width - 2).Render(styles.MutedText.Render("Loading cart..."))
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Your cart (" + plural(snap.ItemCount, "item") + ")"))
	b.WriteString("\n\n")

	if m.sync.IsEmpty || len(snap.Items) == 0 {
		b.WriteString(styles.MutedText.Render("Your cart is currently empty."))
		return styles.Panel.Width(width - 2).Render(b.String())
	}

	for i, item := range snap.Items {
		b.WriteString(m.renderLine(item, i == m.selected, inner))
		b.WriteString("\n\n")
	}

	b.WriteString(styles.FaintText.Render(strings.Repeat("─", inner)))
	b.WriteString("\n")
	b.WriteString(m.renderTotals(snap.Totals, inner))

	return styles.Panel.Width(width - 2).Render(b.String())
}

func (m Model) renderLine(item cart.LineItem, selected bool, width int) string {
	styles := m.theme.Styles()

	marker := "  "
	if selected {
		marker = styles.AccentText.Render("› ")
	}

	total := styles.Text.Bold(true).Render(item.FormattedLineTotal)
	nameWidth := width - lipgloss.Width(marker) - lipgloss.Width(total) - 1
	name := styles.Text.Bold(true).Render(truncate(item.Product.Name, nameWidth))
	if selected {
		name = styles.Selected.Bold(true).Render(truncate(item.Product.Name, nameWidth))
	}
	gap := max(width-lipgloss.Width(marker)-lipgloss.Width(name)-lipgloss.Width(total), 1)

	lines := []string{marker + name + strings.Repeat(" ", gap) + total}
	indent := "  "

	if attrs := attributeLine(item.Product.Attributes); attrs != "" {
		lines = append(lines, indent+styles.MutedText.Render(truncate(attrs, width-2)))
	}

	lines = append(lines, indent+m.renderPrice(item))
	lines = append(lines, indent+m.renderQuantity(item))

	if m.width >= LayoutCompactWidth && item.DisplayDescription != "" {
		lines = append(lines, indent+styles.FaintText.Render(truncate(item.DisplayDescription, width-2)))
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderPrice(item cart.LineItem) string {
	styles := m.theme.Styles()
	if !item.OnSale {
		return styles.Text.Render(item.FormattedPrice)
	}
	return styles.Strike.Render(item.FormattedRegularPrice) + " " +
		styles.Text.Render(item.FormattedSalePrice) + " " +
		styles.SuccessText.Render("save "+item.FormattedDiscountAmount)
}

func (m Model) renderQuantity(item cart.LineItem) string {
	styles := m.theme.Styles()
	mutating := m.sync.IsMutating(item.Key)

	var qty string
	switch {
	case m.editKey == item.Key:
		qty = styles.MutedText.Render("qty ") + "[" + m.qtyInput.View() + "]"
	case !item.Limits.Editable:
		qty = styles.MutedText.Render("qty ") + styles.Text.Render(itoa(item.Quantity))
	default:
		minus := styles.AccentText.Render("−")
		if item.Quantity <= item.Limits.Minimum {
			minus = styles.FaintText.Render("−")
		}
		plus := styles.AccentText.Render("+")
		if item.Quantity >= item.Limits.Maximum {
			plus = styles.FaintText.Render("+")
		}
		qty = minus + " [" + styles.Text.Render(itoa(item.Quantity)) + "] " + plus
	}

	if item.Limits.Editable && (item.Limits.Minimum != cart.DefaultMinimum || item.Limits.Maximum != cart.DefaultMaximum) {
		qty += styles.FaintText.Render(" (" + itoa(item.Limits.Minimum) + "–" + itoa(item.Limits.Maximum) + ")")
	}
	if mutating {
		qty += " " + styles.WarningText.Render("updating…")
	}
	if item.OnSale && item.Quantity > 1 {
		qty += "  " + styles.SuccessText.Render("you save "+item.FormattedTotalDiscount)
	}
	return qty
}

func (m Model) renderTotals(t cart.Totals, width int) string {
	styles := m.theme.Styles()
	rows := [][2]string{{"Subtotal", t.FormattedTotalItems}}
	if t.TotalDiscount > 0 {
		rows = append(rows, [2]string{"Discount", "-" + t.Currency.Format(t.TotalDiscount)})
	}
	rows = append(rows, [2]string{"Total", t.FormattedTotalPrice})

	out := make([]string, 0, len(rows))
	for i, row := range rows {
		label := styles.MutedText.Render(row[0])
		value := styles.Text.Render(row[1])
		if i == len(rows)-1 {
			label = styles.Text.Bold(true).Render(row[0])
			value = styles.Text.Bold(true).Render(row[1])
		}
		gap := max(width-lipgloss.Width(label)-lipgloss.Width(value), 1)
		out = append(out, label+strings.Repeat(" ", gap)+value)
	}
	return strings.Join(out, "\n")
}

func (m Model) renderFooter(width int) string {
	styles := m.theme.Styles()
	hint := m.help.View(m.keys)
	if m.editKey != "" {
		hint = "enter confirm · esc cancel"
	}
	return styles.Footer.Width(width).Render(hint)
}

// attributeLine renders "Size: L · Color: Red".
func attributeLine(attrs []cart.Attribute) string {
	parts := make([]string, 0, len(attrs))
	for _, a := range attrs {
		if a.Value == "" {
			continue
		}
		if a.Name == "" {
			parts = append(parts, a.Value)
			continue
		}
		parts = append(parts, a.Name+": "+a.Value)
	}
	return strings.Join(parts, " · ")
}
