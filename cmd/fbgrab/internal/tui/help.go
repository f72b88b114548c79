package tui

import (
	"github.com/rivo/tview"
)

// createHelpPanel creates the help panel.
func (a *App) createHelpPanel() {
	a.helpView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	a.helpView.SetBorder(true).SetTitle(" Help ")

	helpText := `[yellow::b]fbgrab - Facebook video downloader[white]

Paste a Facebook video link, pick a quality and save the video
into the output directory.

[yellow::b]SUBMIT[white]
[cyan]Enter[white]        Process the URL in the input field
[cyan]Tab[white]          Switch between the input field and the format list
[cyan]Escape[white]       Back to the input field

[yellow::b]FORMAT LIST[white]
[cyan]Up/Down[white]      Move through the offered formats
[cyan]Enter[white]        Select the highlighted format (marked with *)
[cyan]d[white]            Download the selected format
[cyan]n[white]            Start over with a new URL
[cyan]q[white]            Quit

[yellow::b]NOTES[white]
- Accepted links contain facebook.com or fb.com.
- The first format is selected by default.
- The progress bar is an estimate until the file is saved.
- Existing files are never overwritten; a number is appended instead.

[yellow::b]TROUBLESHOOTING[white]
If processing fails with a message about blocked, private or
restricted content, open the link in a browser without logging in.
Only public videos can be downloaded.

Press [cyan]Escape[white] or [cyan]?[white] to return.`

	a.helpView.SetText(helpText)
}
