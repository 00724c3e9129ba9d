// Copyright 2026 The Mesh Observer Authors
// SPDX-License-Identifier: Apache-2.0

package main

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the viewer's key bindings.
type keyMap struct {
	TabNodes  key.Binding
	TabLinks  key.Binding
	TabToggle key.Binding
	Refresh   key.Binding
	Quit      key.Binding
}

// defaultKeyMap is the built-in binding set. Table navigation (j/k,
// arrows, paging) is handled by the focused table component itself.
var defaultKeyMap = keyMap{
	TabNodes: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "nodes"),
	),
	TabLinks: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "links"),
	),
	TabToggle: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("Tab", "switch tab"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
