package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the bindings. The global group works whatever has focus.
type keyMap struct {
	Quit      key.Binding
	Save      key.Binding
	New       key.Binding
	Search    key.Binding
	Escape    key.Binding
	Theme     key.Binding
	Sidebar   key.Binding
	Export    key.Binding
	Refresh   key.Binding
	SwitchTab key.Binding

	Up         key.Binding
	Down       key.Binding
	Open       key.Binding
	Favorite   key.Binding
	Delete     key.Binding
	Duplicate  key.Binding
	Move       key.Binding
	PrevFolder key.Binding
	NextFolder key.Binding
	NewFolder  key.Binding
	Rename     key.Binding
	MoveFolder key.Binding
	DelFolder  key.Binding
	Close      key.Binding
	NextField  key.Binding
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
	New:       key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new")),
	Search:    key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "search")),
	Escape:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
	Theme:     key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "theme")),
	Sidebar:   key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "sidebar")),
	Export:    key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "export")),
	Refresh:   key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "reload")),
	SwitchTab: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "editor/manager")),

	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Open:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Favorite:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
	Delete:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Duplicate:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy")),
	Move:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move here")),
	PrevFolder: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev folder")),
	NextFolder: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next folder")),
	NewFolder:  key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new folder")),
	Rename:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "rename folder")),
	MoveFolder: key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "move folder")),
	DelFolder:  key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "delete folder")),
	Close:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	NextField:  key.NewBinding(key.WithKeys("ctrl+j", "ctrl+down"), key.WithHelp("ctrl+j", "next field")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.New, k.Search, k.Escape, k.SwitchTab, k.Export, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.ShortHelp(),
		{k.Up, k.Down, k.Open, k.Favorite, k.Delete, k.Duplicate, k.Move},
		{k.PrevFolder, k.NextFolder, k.NewFolder, k.Rename, k.MoveFolder, k.DelFolder},
		{k.Theme, k.Sidebar, k.Refresh, k.NextField},
	}
}
