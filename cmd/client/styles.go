package main

import "github.com/charmbracelet/lipgloss"

var (
	// https://github.com/muesli/termenv/blob/master/ansicolors.go
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	green = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	gray  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))

	titleStyle   = cyan.Bold(true)
	linkStyle    = green.Underline(true)
	labelStyle   = gray.Width(10)
	errorStyle   = red.Bold(true)
	spinnerStyle = cyan
)
