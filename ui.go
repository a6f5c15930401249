package main

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// tickMsg advances playback by one step
type tickMsg time.Time

// scheduleChangedMsg is sent by the file watcher
type scheduleChangedMsg struct{}

// reloadedMsg carries the result of recompiling the schedule
type reloadedMsg struct {
	seq     int // Matches liveState.reloadSeq when this is the newest reload
	session *Session
	err     error
}

// liveState is shared by every copy of the model. The engine's time
// listener writes the active steps here on each change.
type liveState struct {
	index     *StepIndex
	active    []ActiveStep
	reloadSeq int // Incremented for every reload started
}

// model holds the UI state for the Bubbletea application
type model struct {
	cfg      Config
	session  *Session
	engine   *Playback
	clips    *ClipTable
	clipName string
	location *time.Location
	live     *liveState
	reload   func() (*Session, error) // Recompiles the schedule; nil disables reload

	width   int
	height  int
	playing bool

	selected   int // Cursor row in the steps pane
	stepOffset int // First visible row in the steps pane

	timeInputMode  bool
	timeInput      textinput.Model
	helpViewMode   bool
	detailViewMode bool // Step detail popup for the selected row

	searchMode      bool   // Search input mode
	searchDirection string // "forward" or "backward"
	searchInput     textinput.Model
	searchPattern   string
	searchActive    bool

	status      string // Last log record or reload result
	statusLevel slog.Level
}

// newModel creates a model over an installed session
func newModel(cfg Config, session *Session, engine *Playback, clips *ClipTable) model {
	ti := textinput.New()
	ti.Placeholder = "2024-01-02 08:00 or Unix seconds"
	ti.CharLimit = 40
	ti.Width = 40

	si := textinput.New()
	si.Placeholder = "Enter search pattern (use * for wildcard)"
	si.CharLimit = 100
	si.Width = 60

	location := time.Local
	if opts, err := cfg.ParseOptions(); err == nil {
		location = opts.Location
	}

	live := &liveState{index: session.Index}
	engine.OnTimePointChanged(func(t float64) {
		live.active = live.index.Active(timeFromSeconds(t))
	})
	live.active = live.index.Active(timeFromSeconds(engine.TimePoint()))

	return model{
		cfg:         cfg,
		session:     session,
		engine:      engine,
		clips:       clips,
		clipName:    clipNone,
		location:    location,
		live:        live,
		timeInput:   ti,
		searchInput: si,
	}
}

// Init initializes the model (required by Bubbletea)
func (m model) Init() tea.Cmd {
	return nil
}

// tick schedules the next playback step
func (m model) tick() tea.Cmd {
	return tea.Tick(m.cfg.PlayInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// seek moves the engine clock, clamped to the script range
func (m *model) seek(t float64) {
	m.engine.SetTimePoint(m.engine.clampTime(t))
}

// seekBy moves the engine clock by d of schedule time
func (m *model) seekBy(d time.Duration) {
	m.seek(m.engine.TimePoint() + d.Seconds())
}

// currentTime returns the engine clock as a time
func (m model) currentTime() time.Time {
	return timeFromSeconds(m.engine.TimePoint())
}

// selectStep moves the cursor to step i and keeps it on screen
func (m *model) selectStep(i int) {
	if n := m.session.Schedule.Len(); i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	m.selected = i
	rows := m.stepRows()
	if m.selected < m.stepOffset {
		m.stepOffset = m.selected
	} else if m.selected >= m.stepOffset+rows {
		m.stepOffset = m.selected - rows + 1
	}
}

// stepRows is the number of step rows that fit on screen
func (m model) stepRows() int {
	// Header, column titles, scrubber box (3), status line
	rows := m.height - 7
	if rows < 1 {
		rows = 1
	}
	return rows
}

// Update handles messages and updates the model (required by Bubbletea)
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	// Messages that arrive regardless of mode
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.selectStep(m.selected)
		return m, nil

	case tickMsg:
		if !m.playing {
			return m, nil
		}
		_, end := m.engine.Range()
		m.seekBy(m.cfg.PlayStep)
		if m.engine.TimePoint() >= end {
			m.playing = false
			return m, nil
		}
		return m, m.tick()

	case statusMsg:
		m.status = msg.Text
		m.statusLevel = msg.Level
		return m, nil

	case scheduleChangedMsg:
		if m.reload == nil {
			return m, nil
		}
		m.live.reloadSeq++
		seq := m.live.reloadSeq
		reload := m.reload
		return m, func() tea.Msg {
			session, err := reload()
			return reloadedMsg{seq: seq, session: session, err: err}
		}

	case reloadedMsg:
		// A newer reload has started; its result supersedes this one
		if msg.seq != m.live.reloadSeq {
			return m, nil
		}
		if msg.err != nil {
			// Keep showing the previous schedule
			m.status = fmt.Sprintf("reload failed: %v", firstLine(msg.err.Error()))
			m.statusLevel = slog.LevelError
			return m, nil
		}
		m.session = msg.session
		m.live.index = msg.session.Index
		m.engine.Reinstall(msg.session.Script, msg.session.Excluded)
		m.live.active = m.live.index.Active(m.currentTime())
		m.selectStep(m.selected)
		m.status = fmt.Sprintf("reloaded %d steps", msg.session.Schedule.Len())
		m.statusLevel = slog.LevelInfo
		return m, nil
	}

	// Handle help view mode
	if m.helpViewMode {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "q", "h", "esc", "ctrl+c":
				m.helpViewMode = false
			}
		}
		return m, nil
	}

	// Handle step detail mode
	if m.detailViewMode {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "q", "d", "esc", "enter", "ctrl+c":
				m.detailViewMode = false
			}
		}
		return m, nil
	}

	// Handle time input mode separately
	if m.timeInputMode {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "enter":
				if target, err := parseTimeInput(m.timeInput.Value(), m.location); err == nil {
					start, end := m.engine.Range()
					// Only jump if within valid range
					if target >= start && target <= end {
						m.seek(target)
						m.timeInputMode = false
						m.timeInput.Reset()
						m.timeInput.Blur()
					}
				}
				// If invalid, stay in input mode so the user can correct it
				return m, nil

			case "esc", "ctrl+c":
				m.timeInputMode = false
				m.timeInput.Reset()
				m.timeInput.Blur()
				return m, nil
			}
		}
		m.timeInput, cmd = m.timeInput.Update(msg)
		return m, cmd
	}

	// Handle search mode separately
	if m.searchMode {
		if msg, ok := msg.(tea.KeyMsg); ok {
			switch msg.String() {
			case "enter":
				if searchText := m.searchInput.Value(); searchText != "" {
					m.searchPattern = searchText
					m.searchActive = true

					var match int
					if m.searchDirection == "forward" {
						match = m.searchForward(m.selected+1, m.searchPattern)
					} else {
						match = m.searchBackward(m.selected-1, m.searchPattern)
					}
					if match >= 0 {
						m.jumpToStep(match)
					}
				}
				// Exit search input mode but keep search active
				m.searchMode = false
				m.searchInput.Blur()
				return m, nil

			case "esc", "ctrl+c":
				m.searchMode = false
				m.searchInput.Reset()
				m.searchInput.Blur()
				return m, nil
			}
		}
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, cmd
	}

	// Normal mode
	msgKey, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	start, end := m.engine.Range()

	switch msgKey.String() {
	case "ctrl+c", "q", "Q":
		return m, tea.Quit

	case " ", "space":
		// Toggle playback, restarting from the beginning at the end
		m.playing = !m.playing
		if m.playing {
			if m.engine.TimePoint() >= end {
				m.seek(start)
			}
			return m, m.tick()
		}

	case "ctrl+n", "right", "l":
		m.seekBy(m.cfg.TimeStep)

	case "ctrl+p", "left":
		m.seekBy(-m.cfg.TimeStep)

	case "ctrl+v":
		m.seekBy(m.cfg.PageStep)

	case "alt+v":
		m.seekBy(-m.cfg.PageStep)

	case "]":
		// Jump to the next step start or end
		if next, ok := m.live.index.NextBoundary(m.currentTime()); ok {
			m.seek(unixSeconds(next))
		}

	case "[":
		if prev, ok := m.live.index.PrevBoundary(m.currentTime()); ok {
			m.seek(unixSeconds(prev))
		}

	case "g":
		m.seek(start)

	case "G", "shift+g":
		m.seek(end)

	case "down", "j":
		m.selectStep(m.selected + 1)

	case "up", "k":
		m.selectStep(m.selected - 1)

	case "enter":
		m.jumpToStep(m.selected)

	case "d":
		if m.session.Schedule.Len() > 0 {
			m.detailViewMode = true
		}

	case "v":
		// Cycle the clip region; each selection replaces the last
		m.clipName = m.clips.Next(m.clipName)
		m.clips.SelectRegion(m.engine, m.clipName)

	case "t":
		m.timeInputMode = true
		m.timeInput.Focus()
		return m, textinput.Blink

	case "h":
		m.helpViewMode = true

	case "/":
		m.searchMode = true
		m.searchDirection = "forward"
		m.searchInput.Focus()
		return m, textinput.Blink

	case "?":
		m.searchMode = true
		m.searchDirection = "backward"
		m.searchInput.Focus()
		return m, textinput.Blink

	case "n":
		// Go to next match in the original search direction
		if m.searchActive && m.searchPattern != "" {
			var match int
			if m.searchDirection == "forward" {
				match = m.searchForward(m.selected+1, m.searchPattern)
			} else {
				match = m.searchBackward(m.selected-1, m.searchPattern)
			}
			if match >= 0 {
				m.jumpToStep(match)
			}
		}

	case "N", "shift+n":
		// Go to previous match (opposite of original search direction)
		if m.searchActive && m.searchPattern != "" {
			var match int
			if m.searchDirection == "forward" {
				match = m.searchBackward(m.selected-1, m.searchPattern)
			} else {
				match = m.searchForward(m.selected+1, m.searchPattern)
			}
			if match >= 0 {
				m.jumpToStep(match)
			}
		}

	case "esc":
		// Clear search highlighting
		m.searchActive = false
		m.searchPattern = ""
	}

	return m, nil
}

// jumpToStep selects step i and moves the clock to its start
func (m *model) jumpToStep(i int) {
	if i < 0 || i >= m.session.Schedule.Len() {
		return
	}
	m.selectStep(i)
	m.seek(unixSeconds(m.session.Schedule.Step(i).StartTime))
}

// View renders the UI (required by Bubbletea)
func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	switch {
	case m.helpViewMode:
		return m.renderHelpPopup()
	case m.detailViewMode:
		return m.renderDetailPopup()
	case m.timeInputMode:
		return m.renderTimeInputPopup()
	}
	return m.renderBase()
}

// renderBase draws the steps pane, the scene pane, the scrubber and the
// status line
func (m model) renderBase() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))

	leftWidth := m.width * 3 / 5
	rightWidth := m.width - leftWidth - 1
	rows := m.stepRows()

	header := headerStyle.Render(fmt.Sprintf("schedscrub  %s  (%d steps, %d excluded)",
		m.cfg.Schedule, m.session.Schedule.Len(), len(m.session.Excluded)))

	stepsPane := lipgloss.NewStyle().Width(leftWidth).Height(rows + 1).
		Render(strings.Join(m.buildStepsPane(rows, leftWidth), "\n"))
	scenePane := lipgloss.NewStyle().Width(rightWidth).Height(rows + 1).
		Render(strings.Join(m.buildScenePane(rows+1, rightWidth), "\n"))
	panes := lipgloss.JoinHorizontal(lipgloss.Top, stepsPane, " ", scenePane)

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		panes,
		m.renderScrubber(),
		m.renderStatusLine(),
	)
}

// buildStepsPane renders the visible rows of the steps table
func (m model) buildStepsPane(rows, width int) []string {
	columnStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("252")).
		Underline(true)
	normalStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	selectedStyle := lipgloss.NewStyle().Reverse(true)
	matchStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("226"))

	active := make(map[int]bool, len(m.live.active))
	for _, a := range m.live.active {
		active[a.Index] = true
	}

	var searchRegex *regexp.Regexp
	if m.searchActive && m.searchPattern != "" {
		searchRegex = searchMatcher(m.searchPattern)
	}

	titleWidth := width - 2 - 2*(len(timeDisplayLayout)+1) - 9
	if titleWidth < 8 {
		titleWidth = 8
	}

	lines := []string{columnStyle.Render(fmt.Sprintf("  %-*s %-*s %-*s %s",
		titleWidth, "Step", len(timeDisplayLayout), "Start", len(timeDisplayLayout), "End", "Status"))}

	if m.session.Schedule.Len() == 0 {
		return append(lines, "", "  <NO_STEPS>")
	}

	for i := m.stepOffset; i < m.session.Schedule.Len() && i < m.stepOffset+rows; i++ {
		step := m.session.Schedule.Step(i)
		marker := "  "
		if active[i] {
			marker = "▶ "
		}
		status := "on time"
		if step.IsDelayed() {
			status = "delayed"
		}
		line := fmt.Sprintf("%s%-*s %s %s %s",
			marker,
			titleWidth, truncate(step.Title, titleWidth),
			step.StartTime.In(m.location).Format(timeDisplayLayout),
			step.EndTime.In(m.location).Format(timeDisplayLayout),
			status,
		)

		style := normalStyle
		switch {
		case active[i]:
			style = activeStyle
		case searchRegex != nil && stepMatches(step, searchRegex):
			style = matchStyle
		}
		if i == m.selected {
			style = style.Copy().Inherit(selectedStyle)
		}
		lines = append(lines, style.Render(line))
	}
	return lines
}

// buildScenePane renders element states grouped by element group
func (m model) buildScenePane(rows, width int) []string {
	groupStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("33")).
		Underline(true)
	hiddenStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	shownStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("252"))

	state := m.engine.State()
	var lines []string

	if len(state.Groups) == 0 {
		return []string{"", "  <NO_SCENE>"}
	}

	for _, group := range state.Groups {
		label := group.Group.ID
		if group.Group.Name != "" {
			label = fmt.Sprintf("%s (%s)", group.Group.Name, group.Group.ID)
		}
		lines = append(lines, groupStyle.Render(fmt.Sprintf("%s  %d/%d drawn",
			truncate(label, width-14), group.DrawnCount(), len(group.Elements))))

		for _, element := range group.Elements {
			name := element.Element.ID
			if element.Element.Name != "" {
				name = element.Element.Name
			}

			swatch := "■"
			swatchStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
			if element.Color != nil {
				swatchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(element.Color.Hex()))
			}

			var detail string
			switch {
			case element.NeverDrawn:
				detail = "never drawn"
			case element.Clipped:
				detail = "clipped"
			default:
				detail = fmt.Sprintf("%3.0f%%", element.Visibility)
			}

			text := fmt.Sprintf(" %-*s %s", maxInt(width-16, 4), truncate(name, maxInt(width-16, 4)), detail)
			style := shownStyle
			if !element.Drawn() {
				style = hiddenStyle
				swatch = "□"
			}
			lines = append(lines, " "+swatchStyle.Render(swatch)+style.Render(text))
		}
	}

	if len(lines) > rows {
		lines = append(lines[:rows-1], hiddenStyle.Render(fmt.Sprintf("  … %d more", len(lines)-rows+1)))
	}
	return lines
}

// renderScrubber draws the time bar with the active steps
func (m model) renderScrubber() string {
	scrubberStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("241")).
		Width(maxInt(m.width-2, 10))
	timeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("51"))

	start, end := m.engine.Range()
	current := m.engine.TimePoint()

	barWidth := 30
	filled := 0
	if end > start {
		filled = int(float64(barWidth) * (current - start) / (end - start))
	}
	filled = maxInt(0, minInt(filled, barWidth))
	bar := strings.Repeat("━", filled) + "●" + strings.Repeat("─", barWidth-filled)

	playState := "⏸"
	if m.playing {
		playState = "▶"
	}

	titles := strings.Join(Titles(m.live.active), ", ")
	if titles == "" {
		titles = "none"
	}

	line := fmt.Sprintf("%s %s %s  Active: %s  View: %s",
		playState,
		timeStyle.Render(m.currentTime().In(m.location).Format(timeDisplayLayout)),
		bar,
		titles,
		m.clips.Label(m.clipName),
	)
	return scrubberStyle.Render(truncate(line, maxInt(m.width-4, 10)))
}

// renderStatusLine shows the latest status message or the key help
func (m model) renderStatusLine() string {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	if m.searchMode {
		return m.searchInput.View()
	}
	if m.status != "" {
		color := lipgloss.Color("252")
		switch {
		case m.statusLevel >= slog.LevelError:
			color = lipgloss.Color("196")
		case m.statusLevel >= slog.LevelWarn:
			color = lipgloss.Color("214")
		}
		return lipgloss.NewStyle().Foreground(color).Render(truncate(m.status, m.width))
	}
	return helpStyle.Render(truncate("space: play | ←/→: step | [/]: prev/next boundary | v: view | t: time | /: search | h: help | q: quit", m.width))
}

// renderHelpPopup renders the help information popup overlay
func (m model) renderHelpPopup() string {
	popupStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("39")).
		Padding(1, 2).
		Width(70)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		Underline(true)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("46")).
		MarginTop(1)

	commandStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	var content strings.Builder
	content.WriteString(titleStyle.Render("Schedule Scrubber"))
	content.WriteString("\n")

	sections := []struct {
		title    string
		commands []string
	}{
		{"Playback:", []string{
			"  Space              Play / pause",
			"  Ctrl+N / Ctrl+P    Step forward / backward",
			"  Ctrl+V / Alt+V     Page forward / backward",
			"  ] / [              Next / previous step start or end",
			"  g / G              Jump to start / end",
			"  t                  Jump to a specific time",
		}},
		{"Steps:", []string{
			"  ↑/↓ or k/j         Move the cursor",
			"  Enter              Jump to the selected step's start",
			"  d                  Show step details",
		}},
		{"Search:", []string{
			"  / and ?            Search titles and descriptions (* wildcard)",
			"  n / N              Next / previous match",
			"  Esc                Clear search highlighting",
		}},
		{"View:", []string{
			"  v                  Cycle clip region",
			"  h                  Show this help",
			"  q / Ctrl+C         Quit",
		}},
	}
	for _, section := range sections {
		content.WriteString(sectionStyle.Render(section.title))
		content.WriteString("\n")
		for _, command := range section.commands {
			content.WriteString(commandStyle.Render(command))
			content.WriteString("\n")
		}
	}
	content.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("\nPress q/h/Esc to close"))

	popup := popupStyle.Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popup, lipgloss.WithWhitespaceChars(" "))
}

// renderDetailPopup shows every field of the selected step
func (m model) renderDetailPopup() string {
	popupStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("39")).
		Padding(1, 2).
		Width(70)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	step := m.session.Schedule.Step(m.selected)
	status := "on time"
	if step.IsDelayed() {
		status = "delayed"
	}

	field := func(name, value string) string {
		return keyStyle.Render(fmt.Sprintf("%-14s", name)) + value + "\n"
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render(step.Title))
	content.WriteString("\n\n")
	content.WriteString(field("Start", step.StartTime.In(m.location).Format(timeDisplayLayout)))
	content.WriteString(field("End", step.EndTime.In(m.location).Format(timeDisplayLayout)))
	content.WriteString(field("Revised start", step.RevisedStartTime.In(m.location).Format(timeDisplayLayout)))
	content.WriteString(field("Status", status))
	content.WriteString(field("Group", step.GroupID))
	content.WriteString(field("Elements", strings.Join(step.ElementIDs, ", ")))
	content.WriteString(field("Source row", fmt.Sprintf("%d", step.Row)))
	if step.Description != "" {
		content.WriteString("\n")
		content.WriteString(step.Description)
		content.WriteString("\n")
	}
	content.WriteString(keyStyle.Render("\nEsc/d: close"))

	popup := popupStyle.Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popup, lipgloss.WithWhitespaceChars(" "))
}

// renderTimeInputPopup renders the time input popup overlay
func (m model) renderTimeInputPopup() string {
	popupStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("39")).
		Padding(1, 2).
		Width(56)

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39"))

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		MarginTop(1)

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("196")).
		MarginTop(1)

	rangeStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("243")).
		Italic(true)

	start, end := m.engine.Range()
	first := timeFromSeconds(start).In(m.location).Format(timeDisplayLayout)
	last := timeFromSeconds(end).In(m.location).Format(timeDisplayLayout)

	// Validate the current input
	var validationMsg string
	if inputValue := m.timeInput.Value(); inputValue != "" {
		if target, err := parseTimeInput(inputValue, m.location); err != nil {
			validationMsg = errorStyle.Render("✗ Unrecognized time")
		} else if target < start {
			validationMsg = errorStyle.Render("✗ Time must be at or after " + first)
		} else if target > end {
			validationMsg = errorStyle.Render("✗ Time must be at or before " + last)
		} else {
			validationMsg = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render("✓ Valid")
		}
	}

	popupContent := titleStyle.Render("Jump to Time") + "\n\n" + m.timeInput.View() + "\n"
	if validationMsg != "" {
		popupContent += validationMsg + "\n"
	}
	popupContent += "\n" + rangeStyle.Render(fmt.Sprintf("Valid range: %s - %s", first, last)) + "\n" +
		helpStyle.Render("Enter: jump | Esc: cancel")

	popup := popupStyle.Render(popupContent)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, popup, lipgloss.WithWhitespaceChars(" "))
}

// convertWildcardToRegex converts a simple wildcard pattern to regex
// * matches 0 or more characters
func convertWildcardToRegex(pattern string) string {
	var result strings.Builder
	for _, ch := range pattern {
		switch ch {
		case '*':
			result.WriteString(".*")
		case '.', '+', '?', '^', '$', '(', ')', '[', ']', '{', '}', '|', '\\':
			result.WriteRune('\\')
			result.WriteRune(ch)
		default:
			result.WriteRune(ch)
		}
	}
	return result.String()
}

// searchMatcher compiles a case-insensitive wildcard pattern. It returns
// nil when the pattern cannot be compiled.
func searchMatcher(pattern string) *regexp.Regexp {
	re, err := regexp.Compile("(?i)" + convertWildcardToRegex(pattern))
	if err != nil {
		return nil
	}
	return re
}

// stepMatches reports whether a step's title or description matches
func stepMatches(step StepRecord, re *regexp.Regexp) bool {
	return re.MatchString(step.Title) || re.MatchString(step.Description)
}

// searchForward finds the first matching step at or after startIndex,
// wrapping around. Returns -1 when nothing matches.
func (m *model) searchForward(startIndex int, pattern string) int {
	re := searchMatcher(pattern)
	if re == nil {
		return -1
	}
	n := m.session.Schedule.Len()
	for offset := 0; offset < n; offset++ {
		i := ((startIndex+offset)%n + n) % n
		if stepMatches(m.session.Schedule.Step(i), re) {
			return i
		}
	}
	return -1
}

// searchBackward finds the last matching step at or before startIndex,
// wrapping around. Returns -1 when nothing matches.
func (m *model) searchBackward(startIndex int, pattern string) int {
	re := searchMatcher(pattern)
	if re == nil {
		return -1
	}
	n := m.session.Schedule.Len()
	for offset := 0; offset < n; offset++ {
		i := ((startIndex-offset)%n + n) % n
		if stepMatches(m.session.Schedule.Step(i), re) {
			return i
		}
	}
	return -1
}

// truncate shortens s to at most width runes, marking the cut with …
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(runes[:width-1]) + "…"
}

// firstLine returns s up to the first newline
func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// runUI starts the Bubbletea TUI program. statusHandler receives the
// program so background log records reach the status line.
func runUI(m model, statusHandler *statusLogHandler, watchPath string, logger *slog.Logger) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	statusHandler.setProgram(p)

	if watchPath != "" {
		stop, err := WatchFile(watchPath, logger, func() { p.Send(scheduleChangedMsg{}) })
		if err != nil {
			logger.Warn("schedule reload disabled", "error", err)
		} else {
			defer stop()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running UI: %w", err)
	}
	return nil
}
