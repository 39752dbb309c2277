// Package tui is the terminal front end of the vault: a document list with
// create, edit and delete-confirmation views.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/safevault/safevault/internal/models"
	"github.com/safevault/safevault/internal/notify"
	"github.com/safevault/safevault/internal/vault"
)

type view int

const (
	viewList view = iota
	viewCreate
	viewEdit
	viewConfirm
)

// Result messages of the storage commands.
type (
	refreshedMsg struct{ err error }
	createdMsg   struct{ err error }
	openedMsg    struct {
		doc models.Document
		err error
	}
	savedMsg   struct{ err error }
	deletedMsg struct{ err error }
)

// Model is the bubbletea model over one vault session.
type Model struct {
	ctx    context.Context
	store  *vault.Store
	notes  *notify.Recorder
	styles Styles

	view   view
	cursor int
	docs   []models.Document
	status *notify.Notification

	name    textinput.Model
	content textarea.Model
	editor  textarea.Model

	width, height int
}

// New builds the model. notes should be the recorder wired into the store's
// notifier; its latest entry is shown in the status line.
func New(ctx context.Context, store *vault.Store, notes *notify.Recorder) Model {
	name := textinput.New()
	name.Placeholder = "Enter file name"
	name.CharLimit = vault.MaxNameLength
	name.Cursor.SetMode(cursor.CursorStatic)

	content := textarea.New()
	content.Placeholder = "Enter file content"
	content.ShowLineNumbers = false
	content.CharLimit = 0
	content.Cursor.SetMode(cursor.CursorStatic)

	editor := textarea.New()
	editor.ShowLineNumbers = false
	editor.CharLimit = 0
	editor.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		ctx:     ctx,
		store:   store,
		notes:   notes,
		styles:  DefaultStyles(),
		name:    name,
		content: content,
		editor:  editor,
	}
}

// Init loads the document list.
func (m Model) Init() tea.Cmd {
	return m.refresh()
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		_, err := m.store.Refresh(m.ctx)
		return refreshedMsg{err: err}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.content.SetWidth(msg.Width - 4)
		m.editor.SetWidth(msg.Width - 4)
		m.editor.SetHeight(max(msg.Height-8, 3))
		return m, nil

	case refreshedMsg:
		m.syncDocs()
		m.noteStatus()
		return m, nil

	case createdMsg:
		m.syncDocs()
		m.noteStatus()
		if msg.err == nil {
			m.name.Reset()
			m.content.Reset()
			m.view = viewList
		}
		return m, nil

	case openedMsg:
		m.noteStatus()
		if msg.err == nil {
			m.editor.SetValue(msg.doc.Text())
			m.editor.Focus()
			m.view = viewEdit
		}
		return m, nil

	case savedMsg:
		m.syncDocs()
		m.noteStatus()
		if msg.err == nil {
			m.editor.Blur()
			m.view = viewList
		}
		return m, nil

	case deletedMsg:
		m.syncDocs()
		m.noteStatus()
		if msg.err == nil {
			m.view = viewList
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case viewCreate:
			return m.updateCreate(msg)
		case viewEdit:
			return m.updateEdit(msg)
		case viewConfirm:
			return m.updateConfirm(msg)
		default:
			return m.updateList(msg)
		}
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.docs)-1 {
			m.cursor++
		}
	case "r":
		return m, m.refresh()
	case "n":
		m.status = nil
		m.view = viewCreate
		m.name.Focus()
		m.content.Blur()
	case "enter":
		doc, ok := m.current()
		if !ok {
			return m, nil
		}
		store, ctx := m.store, m.ctx
		return m, func() tea.Msg {
			opened, err := store.Open(ctx, doc)
			return openedMsg{doc: opened, err: err}
		}
	case "d":
		doc, ok := m.current()
		if !ok {
			return m, nil
		}
		if err := m.store.RequestDelete(doc); err != nil {
			m.status = &notify.Notification{Kind: notify.KindFailure, Message: err.Error()}
			return m, nil
		}
		m.view = viewConfirm
	}
	return m, nil
}

func (m Model) updateCreate(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.name.Blur()
		m.content.Blur()
		m.view = viewList
		return m, nil
	case "tab", "shift+tab":
		if m.name.Focused() {
			m.name.Blur()
			m.content.Focus()
		} else {
			m.content.Blur()
			m.name.Focus()
		}
		return m, nil
	case "ctrl+s":
		return m, m.create()
	case "enter":
		// Enter inside the content area is a newline.
		if m.name.Focused() {
			return m, m.create()
		}
	}

	var cmd tea.Cmd
	if m.name.Focused() {
		m.name, cmd = m.name.Update(msg)
	} else {
		m.content, cmd = m.content.Update(msg)
	}
	return m, cmd
}

func (m Model) create() tea.Cmd {
	store, ctx := m.store, m.ctx
	name, content := m.name.Value(), m.content.Value()
	return func() tea.Msg {
		_, err := store.Create(ctx, name, content)
		return createdMsg{err: err}
	}
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		_ = m.store.Close()
		m.editor.Blur()
		m.view = viewList
		return m, nil
	case "ctrl+s":
		if err := m.store.SetEditBuffer(m.editor.Value()); err != nil {
			m.status = &notify.Notification{Kind: notify.KindFailure, Message: err.Error()}
			return m, nil
		}
		store, ctx := m.store, m.ctx
		return m, func() tea.Msg {
			_, err := store.SaveBuffer(ctx)
			return savedMsg{err: err}
		}
	}
	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		store, ctx := m.store, m.ctx
		return m, func() tea.Msg {
			return deletedMsg{err: store.ConfirmDelete(ctx)}
		}
	case "n", "N", "esc":
		_ = m.store.CancelDelete()
		m.view = viewList
	}
	return m, nil
}

func (m *Model) current() (models.Document, bool) {
	if m.cursor < 0 || m.cursor >= len(m.docs) {
		return models.Document{}, false
	}
	return m.docs[m.cursor], true
}

func (m *Model) syncDocs() {
	m.docs = m.store.Documents()
	if m.cursor >= len(m.docs) {
		m.cursor = max(len(m.docs)-1, 0)
	}
}

func (m *Model) noteStatus() {
	if m.notes == nil {
		return
	}
	if n, ok := m.notes.Last(); ok {
		m.status = &n
	}
}

// View renders the current view.
func (m Model) View() string {
	var b strings.Builder
	switch m.view {
	case viewCreate:
		b.WriteString(m.styles.Title.Render("New document"))
		b.WriteString("\n")
		b.WriteString(m.name.View())
		b.WriteString("\n\n")
		b.WriteString(m.content.View())
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("tab switch field • enter save (from name) • ctrl+s save • esc back"))
	case viewEdit:
		title := "Edit"
		if sel := m.store.Session().Selected; sel != nil {
			title = "Edit " + sel.Name()
		}
		b.WriteString(m.styles.Title.Render(title))
		b.WriteString("\n")
		b.WriteString(m.editor.View())
		b.WriteString("\n")
		b.WriteString(m.styles.Help.Render("ctrl+s save • esc close"))
	case viewConfirm:
		name := ""
		if p := m.store.Session().PendingDelete; p != nil {
			name = p.Name()
		}
		b.WriteString(m.styles.Dialog.Render(fmt.Sprintf("Delete %s?\n\nThis cannot be undone.  (y/n)", name)))
	default:
		b.WriteString(m.styles.Title.Render("Saved Documents"))
		b.WriteString("\n")
		if len(m.docs) == 0 {
			b.WriteString(m.styles.Item.Render("No documents yet."))
			b.WriteString("\n")
		}
		for i, d := range m.docs {
			if i == m.cursor {
				b.WriteString(m.styles.Selected.Render("> " + d.Name()))
			} else {
				b.WriteString(m.styles.Item.Render(d.Name()))
			}
			b.WriteString("\n")
		}
		b.WriteString(m.styles.Help.Render("n new • enter open • d delete • r refresh • q quit"))
	}
	if m.status != nil {
		b.WriteString("\n")
		b.WriteString(m.statusStyle().Render(m.status.Message))
	}
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusStyle() lipgloss.Style {
	switch m.status.Kind {
	case notify.KindSuccess:
		return m.styles.Success
	case notify.KindValidation:
		return m.styles.Info
	default:
		return m.styles.Error
	}
}
