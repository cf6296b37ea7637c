package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/hifix/internal/playback"
	"github.com/desertthunder/hifix/internal/shared"
)

const barWidth = 30

// View renders the TUI.
func (m *Model) View() string {
	sections := []string{m.renderTabs(), m.renderNowPlaying(), m.renderBody()}
	if n := m.renderNotice(); n != "" {
		sections = append(sections, n)
	}
	m.help.ShowAll = m.showHelp
	sections = append(sections, styles.help.Render(m.help.View(m.keys)))
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(viewNames))
	for i, name := range viewNames {
		if ViewState(i) == m.view {
			tabs[i] = styles.tabOn.Render(name)
		} else {
			tabs[i] = styles.tab.Render(name)
		}
	}
	return styles.title.Render("hifix") + "  " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderNowPlaying() string {
	s := m.snap
	if !s.HasTrack() {
		return styles.dim.Render("Nothing playing")
	}

	icon := "⏸"
	if s.IsPlaying {
		icon = "▶"
	}
	if s.State == playback.StateLoading.String() {
		icon = "…"
	}

	title := fmt.Sprintf("%s %s", icon, styles.current.Render(s.Title))
	if s.Artist != "" {
		title += styles.dim.Render(" by " + s.Artist)
	}
	if s.IsLiked {
		title += styles.err.Render(" ♥")
	}

	progress := fmt.Sprintf("%s %s %s",
		shared.FormatDuration(int(s.Progress)),
		progressBar(s.Progress, s.Duration, barWidth),
		shared.FormatDuration(int(s.Duration)),
	)

	return lipgloss.JoinVertical(lipgloss.Left, title, progress, m.renderModes())
}

func (m *Model) renderModes() string {
	s := m.snap
	modes := []string{
		"repeat: " + s.RepeatMode,
		fmt.Sprintf("vol: %d%%", int(s.Volume*100+0.5)),
	}
	if s.IsShuffled {
		modes = append(modes, "shuffle")
	}
	if s.Quality != "" {
		modes = append(modes, s.Quality)
	}
	switch {
	case s.Crossfading:
		modes = append(modes, "crossfading")
	case s.Crossfade:
		modes = append(modes, fmt.Sprintf("xfade %gs", s.CrossfadeSeconds))
	}
	if s.Suggested {
		modes = append(modes, "suggested")
	}
	if left, ok := m.deps.Player.SleepRemaining(); ok {
		modes = append(modes, "sleep in "+shared.FormatDuration(int(left.Seconds())))
	}
	return styles.dim.Render(strings.Join(modes, " · "))
}

func (m *Model) renderBody() string {
	switch m.view {
	case QueueView:
		if len(m.queueList.Items()) == 0 {
			return styles.dim.Render("Queue is empty. Press / to search.")
		}
		return m.queueList.View()
	case SearchView:
		return lipgloss.JoinVertical(lipgloss.Left, m.input.View(), m.searchList.View())
	case LyricsView:
		return m.renderLyrics()
	case PlaylistsView:
		if m.deps.Playlists == nil {
			return styles.dim.Render("Playlists are unavailable.")
		}
		return m.playlistList.View()
	}
	return ""
}

func (m *Model) renderLyrics() string {
	switch {
	case !m.snap.HasTrack():
		return styles.dim.Render("Nothing playing")
	case m.lyricsErr != nil:
		return styles.warn.Render("No lyrics: " + m.lyricsErr.Error())
	case len(m.lyricLines) == 0:
		return styles.dim.Render("Loading lyrics...")
	}

	active := m.deps.Sync.ActiveLine(m.snap.Progress, m.snap.Duration, len(m.lyricLines))
	window := max(m.height-chromeHeight, 5)
	start := max(active-window/2, 0)
	end := min(start+window, len(m.lyricLines))

	var b strings.Builder
	for i := start; i < end; i++ {
		line := m.lyricLines[i]
		if i == active {
			b.WriteString(styles.current.Render(line))
		} else {
			b.WriteString(styles.dim.Render(line))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (m *Model) renderNotice() string {
	n := m.notice
	if n == nil {
		return ""
	}
	text := n.Message
	if n.Err != nil {
		text = fmt.Sprintf("%s: %v", text, n.Err)
	}
	if n.Severity == playback.Blocking {
		return styles.err.Render(text) + styles.help.Render("  (esc to dismiss, R to retry)")
	}
	return styles.warn.Render(text)
}

// progressBar draws a fixed-width bar for position within duration.
func progressBar(position, duration float64, width int) string {
	filled := 0
	if duration > 0 {
		filled = int(position / duration * float64(width))
	}
	filled = min(max(filled, 0), width)
	return styles.bar.Render(strings.Repeat("━", filled)) + styles.barEmpty.Render(strings.Repeat("─", width-filled))
}
