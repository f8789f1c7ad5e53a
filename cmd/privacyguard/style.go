package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"privacyguard-lab/internal/domain/models"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)

	tierStyles = map[models.RiskTier]lipgloss.Style{
		models.RiskTierSafe:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		models.RiskTierLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		models.RiskTierMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		models.RiskTierHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
)

// tierBadge renders a tier name in its color
func tierBadge(t models.RiskTier) string {
	label := string(t)
	if s, ok := tierStyles[t]; ok {
		return s.Render(label)
	}
	return label
}

// newTable returns a bordered table with the shared header and cell styles
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
