// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// theme holds the viewer's lipgloss styles. ANSI 256-color codes for
// broad terminal compatibility; a monochrome terminal gets unstyled
// text.
type theme struct {
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	StatusBar   lipgloss.Style
	ErrorText   lipgloss.Style
	HelpText    lipgloss.Style

	HeaderColor   lipgloss.Color
	SelectedFg    lipgloss.Color
	SelectedBg    lipgloss.Color
	BorderColor   lipgloss.Color
	monochromatic bool
}

// newTheme builds the style set for the detected color profile.
func newTheme(profile termenv.Profile) theme {
	if profile == termenv.Ascii {
		plain := lipgloss.NewStyle()
		return theme{
			ActiveTab:     plain.Bold(true),
			InactiveTab:   plain,
			StatusBar:     plain,
			ErrorText:     plain,
			HelpText:      plain,
			monochromatic: true,
		}
	}
	return theme{
		ActiveTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("24")).
			Padding(0, 1),
		InactiveTab: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236")),
		ErrorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		HelpText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),

		HeaderColor: lipgloss.Color("255"),
		SelectedFg:  lipgloss.Color("255"),
		SelectedBg:  lipgloss.Color("236"),
		BorderColor: lipgloss.Color("240"),
	}
}
