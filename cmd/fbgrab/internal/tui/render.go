package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/iconidentify/fbgrab/internal/domain"
	"github.com/iconidentify/fbgrab/internal/session"
)

const progressWidth = 30

// render redraws every component from s. Runs on the event loop.
func (a *App) render(s session.State) {
	a.state = s

	a.statusBar.SetText(" " + statusLine(s))
	a.resultView.SetText(resultText(s))
	a.renderFormats(s)
	a.progressView.SetText(progressText(s))

	// Troubleshooting advice only for failures the backend is known to report
	a.mainContent.RemoveItem(a.troubleView)
	if s.Status == session.StatusError && domain.NeedsHelp(s.Message) {
		a.mainContent.AddItem(a.troubleView, 5, 0, false)
	}
}

func (a *App) renderFormats(s session.State) {
	a.formatsTable.Clear()

	headers := []string{"", "Quality", "Resolution", "Ext", "Size"}
	for col, h := range headers {
		a.formatsTable.SetCell(0, col, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetSelectable(false))
	}

	if s.Status != session.StatusSuccess {
		return
	}

	for i, f := range s.Formats {
		marker := " "
		if f.FormatID == s.SelectedFormatID {
			marker = "*"
		}
		for col, text := range append([]string{marker}, formatColumns(f)...) {
			a.formatsTable.SetCell(i+1, col, tview.NewTableCell(tview.Escape(text)).SetExpansion(1))
		}
	}
}

// statusLine summarizes s for the status bar.
func statusLine(s session.State) string {
	switch s.Status {
	case session.StatusLoading:
		return "[yellow]Processing..."
	case session.StatusSuccess:
		if s.SavedPath != "" {
			return "[green]Saved to " + tview.Escape(s.SavedPath)
		}
		if s.IsDownloading {
			return "[yellow]Downloading..."
		}
		return "[green]" + tview.Escape(s.Message)
	case session.StatusError:
		return "[red]" + tview.Escape(s.Message)
	}
	return "Paste a Facebook video URL and press Enter"
}

// downloadRefusal explains why StartDownload turned the request down. A
// finished save still counts as in progress until the form resets.
func downloadRefusal(err error, s session.State) string {
	if errors.Is(err, domain.ErrDownloadInProgress) && s.SavedPath != "" {
		return "Already saved to " + s.SavedPath
	}
	return err.Error()
}

func resultText(s session.State) string {
	if s.Status != session.StatusSuccess {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[white::b]%s[-:-:-]\n", tview.Escape(s.Title))
	fmt.Fprintf(&b, "ID: %s\n", tview.Escape(s.DownloadID))
	if s.ThumbnailURL != "" {
		fmt.Fprintf(&b, "Thumbnail: %s\n", tview.Escape(s.ThumbnailURL))
	}
	if len(s.Formats) == 0 {
		b.WriteString("[gray]No format list; the best available quality will be downloaded.")
	}
	return b.String()
}

// formatColumns renders one format as table columns.
func formatColumns(f domain.VideoFormat) []string {
	quality := f.FormatNote
	if quality == "" {
		quality = f.FormatID
	}
	return []string{quality, f.Resolution, f.Ext, formatSize(f.Filesize)}
}

// formatSize renders an optional byte count.
func formatSize(size *int64) string {
	if size == nil || *size <= 0 {
		return "Unknown size"
	}
	return humanize.IBytes(uint64(*size))
}

// progressText renders the download progress bar, or nothing when idle.
func progressText(s session.State) string {
	if !s.IsDownloading {
		return ""
	}
	return " " + tview.Escape(progressBar(s.DownloadProgress, progressWidth))
}

func progressBar(percent, width int) string {
	percent = max(0, min(percent, 100))
	filled := percent * width / 100
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("=", filled), strings.Repeat(" ", width-filled), percent)
}
