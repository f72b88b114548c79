// Package tui provides the terminal user interface for fbgrab.
package tui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/iconidentify/fbgrab/internal/domain"
	"github.com/iconidentify/fbgrab/internal/session"
)

// App is the main TUI application. All machine calls run off the event
// loop; state changes come back through QueueUpdateDraw.
type App struct {
	app     *tview.Application
	pages   *tview.Pages
	machine *session.Machine
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc

	// UI components
	mainFlex     *tview.Flex
	mainContent  *tview.Flex
	header       *tview.TextView
	footer       *tview.TextView
	statusBar    *tview.TextView
	urlInput     *tview.InputField
	resultView   *tview.TextView
	formatsTable *tview.Table
	progressView *tview.TextView
	troubleView  *tview.TextView
	helpView     *tview.TextView

	// Last rendered state, only touched on the event loop
	state session.State
}

// NewApp creates a new TUI application around machine.
func NewApp(machine *session.Machine, logger *slog.Logger) *App {
	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		app:     tview.NewApplication(),
		pages:   tview.NewPages(),
		machine: machine,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		state:   machine.State(),
	}

	a.setupUI()
	machine.OnChange(func(s session.State) {
		a.app.QueueUpdateDraw(func() {
			a.render(s)
		})
	})
	return a
}

// setupUI initializes all UI components.
func (a *App) setupUI() {
	// Header
	a.header = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("\n[white::b]fbgrab[white] - Facebook video downloader")
	a.header.SetBackgroundColor(tcell.ColorDarkBlue)

	// Footer with keybindings
	a.footer = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[yellow]Enter[white]:Process/Select [yellow]Tab[white]:Focus [yellow]d[white]:Download [yellow]n[white]:New [yellow]?[white]:Help [yellow]Ctrl+C[white]:Quit")
	a.footer.SetBackgroundColor(tcell.ColorDarkBlue)

	// Status bar
	a.statusBar = tview.NewTextView().
		SetDynamicColors(true)
	a.statusBar.SetBackgroundColor(tcell.ColorDarkGreen)

	a.urlInput = tview.NewInputField().
		SetLabel(" Video URL: ").
		SetPlaceholder("https://www.facebook.com/watch?v=...").
		SetFieldWidth(0)
	a.urlInput.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			a.submit(a.urlInput.GetText())
		}
	})
	a.urlInput.SetBorder(true).SetTitle(" Submit ")

	a.resultView = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	a.resultView.SetBorder(true).SetTitle(" Video ")

	a.formatsTable = tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	a.formatsTable.SetBorder(true).SetTitle(" Select Quality ")
	a.formatsTable.SetSelectedFunc(func(row, column int) {
		a.selectRow(row)
	})

	a.progressView = tview.NewTextView().
		SetDynamicColors(true)

	a.troubleView = tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetText("[yellow]" + domain.HelpText)
	a.troubleView.SetBorder(true).SetTitle(" Troubleshooting ")

	a.createHelpPanel()

	a.mainContent = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.urlInput, 3, 0, true).
		AddItem(a.resultView, 6, 0, false).
		AddItem(a.formatsTable, 0, 1, false).
		AddItem(a.progressView, 1, 0, false)

	a.pages.AddPage("main", a.mainContent, true, true)
	a.pages.AddPage("help", a.helpView, true, false)

	// Main layout
	a.mainFlex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.header, 3, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false).
		AddItem(a.footer, 1, 0, false)

	// Global key bindings
	a.app.SetInputCapture(a.handleGlobalKeys)

	a.app.SetRoot(a.mainFlex, true).SetFocus(a.urlInput)
	a.render(a.state)
}

// handleGlobalKeys handles global keyboard shortcuts.
func (a *App) handleGlobalKeys(event *tcell.EventKey) *tcell.EventKey {
	if name, _ := a.pages.GetFrontPage(); name == "help" {
		if event.Key() == tcell.KeyEscape || event.Rune() == '?' || event.Rune() == 'q' {
			a.pages.SwitchToPage("main")
			a.app.SetFocus(a.urlInput)
			return nil
		}
		return event
	}

	switch event.Key() {
	case tcell.KeyTab:
		if a.app.GetFocus() == a.urlInput {
			a.app.SetFocus(a.formatsTable)
		} else {
			a.app.SetFocus(a.urlInput)
		}
		return nil
	case tcell.KeyEscape:
		a.app.SetFocus(a.urlInput)
		return nil
	}

	// Don't intercept when typing in the URL field
	if a.app.GetFocus() == a.urlInput {
		return event
	}

	if event.Key() == tcell.KeyRune {
		switch event.Rune() {
		case 'd', 'D':
			a.download()
			return nil
		case 'n', 'N':
			a.urlInput.SetText("")
			go a.machine.Reset()
			a.app.SetFocus(a.urlInput)
			return nil
		case '?':
			a.pages.SwitchToPage("help")
			return nil
		case 'q', 'Q':
			a.Stop()
			return nil
		}
	}

	return event
}

// Submit processes url as if it had been typed into the form. It must be
// called before Run; the event loop is not running yet so the field is set
// directly.
func (a *App) Submit(url string) {
	a.urlInput.SetText(url)
	a.submit(url)
}

func (a *App) submit(url string) {
	go func() {
		s := a.machine.Submit(a.ctx, url)
		if s.Status == session.StatusSuccess {
			a.app.QueueUpdateDraw(func() {
				a.app.SetFocus(a.formatsTable)
			})
		}
	}()
}

// selectRow selects the format shown in table row (row 0 is the header).
func (a *App) selectRow(row int) {
	formats := a.state.Formats
	if row < 1 || row > len(formats) {
		return
	}
	id := formats[row-1].FormatID

	go func() {
		if err := a.machine.SelectFormat(id); err != nil {
			a.logger.Debug("format not selected", "format_id", id, "error", err)
		}
	}()
}

func (a *App) download() {
	go func() {
		err := a.machine.StartDownload(a.ctx)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotReady), errors.Is(err, domain.ErrDownloadInProgress):
			a.app.QueueUpdateDraw(func() {
				a.statusBar.SetText(" [yellow]" + tview.Escape(downloadRefusal(err, a.state)))
			})
		default:
			// The machine already moved to its error state.
			a.logger.Warn("download failed", "error", err)
		}
	}()
}

// Run starts the TUI application.
func (a *App) Run() error {
	return a.app.Run()
}

// Stop stops the TUI application and cancels in-flight requests.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
