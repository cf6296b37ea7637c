package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	toggle   key.Binding
	next     key.Binding
	previous key.Binding
	forward  key.Binding
	rewind   key.Binding
	volUp    key.Binding
	volDown  key.Binding
	shuffle  key.Binding
	repeat   key.Binding
	like     key.Binding
	quality  key.Binding
	sleep    key.Binding
	retry    key.Binding

	crossfade   key.Binding
	fadeLonger  key.Binding
	fadeShorter key.Binding

	tab      key.Binding
	search   key.Binding
	enter    key.Binding
	add      key.Binding
	album    key.Binding
	save     key.Binding
	remove   key.Binding
	moveUp   key.Binding
	moveDown key.Binding
	back     key.Binding
	help     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		forward:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "+5s")),
		rewind:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "-5s")),
		volUp:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volDown:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		shuffle:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "shuffle")),
		repeat:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "repeat")),
		like:     key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "like")),
		quality:  key.NewBinding(key.WithKeys("Q"), key.WithHelp("Q", "quality")),
		sleep:    key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "sleep 30m")),
		retry:    key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "retry")),
		tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch view")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to queue")),
		album:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "play album")),
		save:     key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save queue")),
		remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		moveUp:   key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "move up")),
		moveDown: key.NewBinding(key.WithKeys("J"), key.WithHelp("J", "move down")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

		crossfade:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "crossfade")),
		fadeLonger:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "longer fade")),
		fadeShorter: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "shorter fade")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.toggle, k.next, k.tab, k.search, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.toggle, k.next, k.previous, k.forward, k.rewind},
		{k.volUp, k.volDown, k.shuffle, k.repeat, k.like},
		{k.crossfade, k.fadeLonger, k.fadeShorter, k.quality},
		{k.enter, k.add, k.album, k.remove, k.moveUp, k.moveDown, k.save},
		{k.tab, k.search, k.sleep, k.retry, k.back, k.quit},
	}
}
